package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"water-quality-backend/internal/job"
	"water-quality-backend/internal/log"
	"water-quality-backend/internal/store"
	"water-quality-backend/internal/water"
)

// Error kinds carried in the "kind" field of error bodies.
const (
	kindInvalidInput        = "invalid_input"
	kindUnknownArea         = "unknown_area"
	kindNotFound            = "not_found"
	kindUpstreamUnavailable = "upstream_unavailable"
	kindQueueFull           = "queue_full"
	kindInternal            = "internal"
)

// abortWithError maps err onto a status code and a {kind, error, field} body.
func abortWithError(c *gin.Context, err error) {
	var (
		invalid  *water.InvalidInputError
		unknown  *water.UnknownAreaError
		upstream *water.UpstreamUnavailableError
	)

	switch {
	case errors.As(err, &invalid):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"kind": kindInvalidInput, "error": invalid.Error(), "field": invalid.Field})
	case errors.As(err, &unknown):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"kind": kindUnknownArea, "error": unknown.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"kind": kindNotFound, "error": "Job not found"})
	case errors.As(err, &upstream):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"kind": kindUpstreamUnavailable, "error": upstream.Error()})
	case errors.Is(err, job.ErrQueueFull):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"kind": kindQueueFull, "error": err.Error()})
	default:
		log.Errorw("request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"kind": kindInternal, "error": "internal server error"})
	}
}

// badRequest reports a malformed body that never reached domain validation.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"kind": kindInvalidInput, "error": err.Error()})
}
