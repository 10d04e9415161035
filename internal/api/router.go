package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"water-quality-backend/config"
	"water-quality-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. limiter may be nil to
// build one from cfg; callers that run its eviction loop pass their own.
func NewRouter(h *Handler, cfg *config.ServerConfig, ingestToken string, limiter *mw.IPRateLimiter) *gin.Engine {
	r := gin.Default()
	if cfg.RequestIPHeader != "" {
		r.TrustedPlatform = cfg.RequestIPHeader
	}
	r.Use(mw.Metrics(h.Metrics.HTTPRequestDuration))

	if limiter == nil {
		limiter = mw.NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	}
	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if h.Cache != nil {
		caching = mw.Cache(h.Cache, cfg.CacheTTL)
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(mw.RateLimiter(limiter))
	{
		api.GET("/areas", caching, h.GetAreas)
		api.GET("/alerts", caching, h.GetAlerts)

		api.POST("/classify", h.Classify)
		api.GET("/forecast", h.GetForecast)
		api.POST("/forecast", h.PostForecast)
		api.POST("/recommend", h.Recommend)
		api.POST("/plan", h.Plan)
		api.GET("/source", h.GetSource)

		api.POST("/ingest", mw.BearerToken(ingestToken), h.Ingest)

		api.POST("/treatments", h.StartTreatment)
		api.GET("/treatments/:id", h.GetTreatment)
	}

	return r
}
