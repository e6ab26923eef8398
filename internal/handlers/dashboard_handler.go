package handlers

import (
	"net/http"

	"go-biz-server/internal/database"

	"github.com/gin-gonic/gin"
)

// --- GET /api/admin/dashboard ---
// The admin view: one line per business with income, expenses and profit,
// plus the raw ledger newest first.
func (h *Handler) Dashboard(c *gin.Context) {
	entries, err := database.Ledger(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dashboard"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summaries": database.Summarize(entries),
		"ledger":    entries,
	})
}
