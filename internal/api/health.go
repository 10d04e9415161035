package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"water-quality-backend/internal/log"
)

// Healthz reports that the process is serving.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports whether the database answers.
func (h *Handler) Readyz(c *gin.Context) {
	if err := h.Samples.Ping(c.Request.Context()); err != nil {
		log.Warnf("readiness check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
