package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/malemalice/karang-sqlite-http/internal/database"
	"github.com/malemalice/karang-sqlite-http/pkg/logger"
)

// HealthHandler reports database connectivity.
type HealthHandler struct {
	provisioner *database.Provisioner
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(provisioner *database.Provisioner) *HealthHandler {
	return &HealthHandler{provisioner: provisioner}
}

// Health performs a minimal round trip against the database. GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	elapsed, err := h.provisioner.Health(c.Request.Context())
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, database.ErrNotFound) {
			status = http.StatusNotFound
		}
		logger.Warn("health check failed", "error", err)
		c.JSON(status, gin.H{
			"status":   "unhealthy",
			"database": h.provisioner.Path(),
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"database":   h.provisioner.Path(),
		"elapsed_ms": elapsed.Milliseconds(),
	})
}
