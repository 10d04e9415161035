package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"water-quality-backend/internal/upstream"
	"water-quality-backend/internal/water"
)

// Hardness sources reported by recommend.
const (
	hardnessLive     = "live"
	hardnessBaseline = "baseline"
)

// GetForecast handles GET /api/forecast?area=.
func (h *Handler) GetForecast(c *gin.Context) {
	area := strings.TrimSpace(c.Query("area"))
	if area == "" {
		abortWithError(c, &water.InvalidInputError{Field: "area", Reason: "is required"})
		return
	}
	h.forecast(c, area, h.history(c.Request.Context(), area))
}

type forecastRequest struct {
	Area    string         `json:"area"`
	History []water.Sample `json:"history"`
}

// PostForecast handles POST /api/forecast with caller-supplied history.
func (h *Handler) PostForecast(c *gin.Context) {
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Area) == "" {
		abortWithError(c, &water.InvalidInputError{Field: "area", Reason: "is required"})
		return
	}
	h.forecast(c, req.Area, req.History)
}

func (h *Handler) forecast(c *gin.Context, area string, history []water.Sample) {
	f, err := h.Forecaster.Forecast(area, history)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.Metrics.Forecasts.WithLabelValues(f.Source).Inc()
	c.JSON(http.StatusOK, f)
}

type recommendRequest struct {
	Chore        string  `json:"chore"`
	VolumeLiters float64 `json:"volume_liters"`
	Area         string  `json:"area"`
}

// Recommend handles POST /api/recommend.
func (h *Handler) Recommend(c *gin.Context) {
	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	chore, err := h.Chores.Lookup(req.Chore)
	if err != nil {
		abortWithError(c, err)
		return
	}

	var (
		current *float64
		source  string
		area    = strings.TrimSpace(req.Area)
	)
	if area != "" {
		hardness, src, err := h.currentHardness(c, area)
		if err != nil {
			abortWithError(c, err)
			return
		}
		current, source = &hardness, src
	}

	rec, err := water.Recommend(chore, req.VolumeLiters, current, h.Devices)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if area != "" {
		rec.Area = h.displayName(area)
		rec.HardnessSource = source
	}
	c.JSON(http.StatusOK, rec)
}

// currentHardness prefers the latest complete live sample and falls back to
// the registry baseline when the area has none. An area with neither is
// unknown. A failing data source is reported, never masked by the baseline.
func (h *Handler) currentHardness(c *gin.Context, area string) (float64, string, error) {
	s, err := h.latest(c.Request.Context(), area)
	if err != nil {
		return 0, "", err
	}
	if s != nil {
		if hardness, err := s.Hardness(); err == nil {
			return hardness, hardnessLive, nil
		}
	}

	p, err := h.Registry.Lookup(area)
	if err != nil {
		return 0, "", err
	}
	return p.BaselineHardness(), hardnessBaseline, nil
}

// GetSource handles GET /api/source?area=.
func (h *Handler) GetSource(c *gin.Context) {
	area := strings.TrimSpace(c.Query("area"))
	if area == "" {
		abortWithError(c, &water.InvalidInputError{Field: "area", Reason: "is required"})
		return
	}
	if h.Prober == nil {
		msg := "upstream not configured"
		c.JSON(http.StatusOK, upstream.SourceStatus{Error: &msg})
		return
	}
	c.JSON(http.StatusOK, h.Prober.Probe(c.Request.Context(), area))
}

type planRequest struct {
	CurrentHardness *float64       `json:"current_hardness"`
	TargetHardness  *float64       `json:"target_hardness"`
	VolumeLiters    *float64       `json:"volume_liters"`
	Devices         []water.Device `json:"devices"`
}

// Plan handles POST /api/plan. Devices default to the configured catalog.
func (h *Handler) Plan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"current_hardness", req.CurrentHardness},
		{"target_hardness", req.TargetHardness},
		{"volume_liters", req.VolumeLiters},
	} {
		if f.v == nil {
			abortWithError(c, &water.InvalidInputError{Field: f.name, Reason: "is required"})
			return
		}
	}
	devices := req.Devices
	if len(devices) == 0 {
		devices = h.Devices
	}

	estimates, err := water.PlanTreatment(*req.CurrentHardness, *req.TargetHardness, *req.VolumeLiters, devices)
	var noop *water.NoReductionNeededError
	switch {
	case errors.As(err, &noop):
		h.Metrics.Plans.WithLabelValues("noop").Inc()
		c.JSON(http.StatusOK, gin.H{"estimates": []water.TreatmentEstimate{}, "message": noop.Error()})
		return
	case err != nil:
		abortWithError(c, err)
		return
	}

	outcome := "unreachable"
	for _, e := range estimates {
		if e.CanReachTarget {
			outcome = "reachable"
			break
		}
	}
	h.Metrics.Plans.WithLabelValues(outcome).Inc()
	c.JSON(http.StatusOK, gin.H{"estimates": estimates})
}
