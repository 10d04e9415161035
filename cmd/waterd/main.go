package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"water-quality-backend/config"
	"water-quality-backend/internal/api"
	"water-quality-backend/internal/db"
	"water-quality-backend/internal/job"
	"water-quality-backend/internal/log"
	"water-quality-backend/internal/mw"
	"water-quality-backend/internal/observability"
	"water-quality-backend/internal/store"
	"water-quality-backend/internal/upstream"
	"water-quality-backend/internal/water"
)

const (
	limiterEvictEvery = time.Minute
	limiterIdleTTL    = 10 * time.Minute
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	if err := log.Init(cfg.Log.Debug); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer log.Sync()
	log.Infof("configuration loaded successfully from %s", configPath)

	registry, err := water.NewRegistry(cfg.Areas)
	if err != nil {
		log.Fatalf("invalid area configuration: %v", err)
	}
	chores, err := water.NewChoreTable(cfg.Chores)
	if err != nil {
		log.Fatalf("invalid chore configuration: %v", err)
	}
	for i, d := range cfg.Devices {
		if err := d.Validate(); err != nil {
			log.Fatalf("invalid device configuration devices[%d]: %v", i, err)
		}
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	log.Infof("database initialized successfully (driver %s)", cfg.Database.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	appStore := store.NewGormStore(gormDB, clock)

	deps := api.Deps{
		Registry:     registry,
		Chores:       chores,
		Devices:      cfg.Devices,
		Forecaster:   water.NewForecaster(registry, clock),
		History:      appStore,
		Areas:        appStore,
		Samples:      appStore,
		Metrics:      metrics,
		Clock:        clock,
		Cache:        cache.New(cfg.Server.CacheTTL, 2*cfg.Server.CacheTTL),
		HistoryHours: cfg.Forecast.HistoryHours,
	}

	if cfg.Upstream.Enabled {
		client := upstream.NewClient(&cfg.Upstream, clock)
		deps.Prober = client
		switch cfg.Upstream.Mode {
		case config.UpstreamDirect:
			deps.History = client
			deps.Areas = client
			log.Infof("serving history directly from upstream %s", cfg.Upstream.BaseURL)
		default:
			mirror := upstream.NewService(&cfg.Upstream, client, appStore, metrics, clock)
			mirror.OnNewSamples(deps.Cache.Flush)
			go mirror.Run(ctx)
		}
	}

	runner := job.NewRunner(&cfg.Treatment, cfg.WorkerPool, appStore, metrics, clock)
	runner.Start(ctx)
	deps.Jobs = runner

	if cfg.Ingest.Token == "" {
		log.Warnf("ingest.token is not set; POST /api/ingest will reject every request")
	}

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go limiter.RunEviction(ctx, limiterEvictEvery, limiterIdleTTL)

	router := api.NewRouter(api.NewHandler(deps), &cfg.Server, cfg.Ingest.Token, limiter)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		log.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Info("shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server Shutdown: %v", err)
	}

	log.Info("server gracefully stopped")
}
