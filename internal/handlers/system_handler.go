package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// --- GET /api/system/status ---
// Reports DB connectivity and uptime so the client can show a banner
// before an employee wastes time filling a form.
func (h *Handler) SystemStatus(c *gin.Context) {
	dbStatus := "connected"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		dbStatus = "unreachable"
	}

	status := http.StatusOK
	if dbStatus != "connected" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"database": dbStatus,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
