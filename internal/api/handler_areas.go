package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"water-quality-backend/internal/log"
	"water-quality-backend/internal/water"
)

// GetAreas handles GET /api/areas.
func (h *Handler) GetAreas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"areas": h.knownAreas(c.Request.Context())})
}

type alert struct {
	water.Sample
	water.Classification
	HistorySource string `json:"history_source"`
}

// GetAlerts handles GET /api/alerts: the latest sample of every known area,
// classified. Areas without samples are omitted.
func (h *Handler) GetAlerts(c *gin.Context) {
	ctx := c.Request.Context()

	alerts := make([]alert, 0)
	for _, area := range h.knownAreas(ctx) {
		s, err := h.latest(ctx, area)
		if err != nil {
			log.Warnw("latest sample unavailable", "area", area, "error", err)
			continue
		}
		if s == nil {
			continue
		}

		result, err := water.Classify(*s)
		if err != nil {
			log.Warnw("stored sample failed classification", "area", area, "error", err)
			continue
		}

		source := water.SourceMock
		if len(h.history(ctx, area)) > 0 {
			source = water.SourceReal
		}
		alerts = append(alerts, alert{Sample: *s, Classification: result, HistorySource: source})
	}

	if len(alerts) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"kind": kindUpstreamUnavailable, "error": "No water quality data available"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}
