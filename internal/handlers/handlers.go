package handlers

import (
	"errors"
	"net/http"
	"time"

	"go-biz-server/internal/ai"
	"go-biz-server/internal/auth"
	"go-biz-server/internal/config"
	"go-biz-server/internal/sales"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler carries the injected dependencies for every route. Built once in
// main; no package-level state.
type Handler struct {
	db      *gorm.DB
	cfg     *config.Config
	tokens  *auth.Manager
	sales   *sales.Service
	agent   *ai.Agent
	log     *zap.Logger
	started time.Time
}

func New(db *gorm.DB, cfg *config.Config, tokens *auth.Manager, salesSvc *sales.Service, agent *ai.Agent, log *zap.Logger) *Handler {
	return &Handler{
		db:      db,
		cfg:     cfg,
		tokens:  tokens,
		sales:   salesSvc,
		agent:   agent,
		log:     log,
		started: time.Now(),
	}
}

// respondError maps the sales error taxonomy onto HTTP statuses. The
// message tells the client whether to fix input, retry later, or call us.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sales.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrUpstream):
		h.log.Warn("upstream failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable, please try again"})
	default:
		h.log.Error("internal failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
