package upstream

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"water-quality-backend/config"
	"water-quality-backend/internal/log"
	"water-quality-backend/internal/observability"
	"water-quality-backend/internal/store"
	"water-quality-backend/internal/water"
)

// SampleWriter persists mirrored samples.
type SampleWriter interface {
	SaveSamples(ctx context.Context, origin string, samples []water.Sample) (int64, error)
}

// Service mirrors upstream history into the local store on an interval.
type Service struct {
	cfg     *config.UpstreamConfig
	client  *Client
	store   SampleWriter
	metrics *observability.Metrics
	clock   clockwork.Clock
	onNew   func()
}

// NewService creates and initializes a new mirror service.
func NewService(cfg *config.UpstreamConfig, client *Client, writer SampleWriter, metrics *observability.Metrics, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		cfg:     cfg,
		client:  client,
		store:   writer,
		metrics: metrics,
		clock:   clock,
	}
}

// OnNewSamples registers fn to run after a sync stores at least one new
// sample. Response caches use it to drop stale entries.
func (s *Service) OnNewSamples(fn func()) {
	s.onNew = fn
}

// Run starts the mirror loop. It returns when ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled || s.cfg.Mode != config.UpstreamMirror {
		log.Info("upstream mirror is disabled. Not starting.")
		return
	}
	log.Infow("starting upstream mirror", "base_url", s.cfg.BaseURL, "interval", s.cfg.Interval)

	s.syncAndLog(ctx)

	timer := s.clock.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("upstream mirror shutting down.")
			return
		case <-timer.Chan():
			s.syncAndLog(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) syncAndLog(ctx context.Context) {
	if err := s.SyncOnce(ctx); err != nil {
		log.Errorf("upstream sync cycle finished with errors: %v", err)
	}
}

// SyncOnce performs a single mirror round: list upstream areas, fetch each
// area's history and store it. A failing area does not stop the others.
func (s *Service) SyncOnce(ctx context.Context) error {
	start := s.clock.Now()
	log.Debugf("executing upstream sync cycle...")

	err := s.sync(ctx)

	s.metrics.UpstreamSyncDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		s.metrics.UpstreamSyncs.WithLabelValues("error").Inc()
		return err
	}
	s.metrics.UpstreamSyncs.WithLabelValues("success").Inc()
	return nil
}

func (s *Service) sync(ctx context.Context) error {
	areas, err := s.client.Areas(ctx)
	if err != nil {
		return fmt.Errorf("failed to list upstream areas: %w", err)
	}

	var errs []error
	var total int64
	for _, area := range areas {
		samples, err := s.client.History(ctx, area, 0)
		if err != nil {
			errs = append(errs, fmt.Errorf("area %q: %w", area, err))
			continue
		}
		written, err := s.store.SaveSamples(ctx, store.OriginUpstream, samples)
		if err != nil {
			errs = append(errs, fmt.Errorf("area %q: %w", area, err))
			continue
		}
		total += written
	}

	s.metrics.SamplesIngested.WithLabelValues(store.OriginUpstream).Add(float64(total))
	if total > 0 && s.onNew != nil {
		s.onNew()
	}
	log.Infow("upstream sync cycle finished", "areas", len(areas), "new_samples", total)
	return errors.Join(errs...)
}
