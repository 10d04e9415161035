package api

import (
	"context"
	"errors"
	"slices"

	"github.com/jonboulle/clockwork"
	"github.com/patrickmn/go-cache"

	"water-quality-backend/internal/job"
	"water-quality-backend/internal/log"
	"water-quality-backend/internal/model"
	"water-quality-backend/internal/observability"
	"water-quality-backend/internal/parse"
	"water-quality-backend/internal/upstream"
	"water-quality-backend/internal/water"
)

// SampleStore persists ingested samples and reports database health.
type SampleStore interface {
	SaveSamples(ctx context.Context, origin string, samples []water.Sample) (int64, error)
	Ping(ctx context.Context) error
}

// LatestProvider is implemented by history sources that can look up the most
// recent sample directly.
type LatestProvider interface {
	Latest(ctx context.Context, area string) (*water.Sample, error)
}

// SourceProber checks upstream reachability.
type SourceProber interface {
	Probe(ctx context.Context, area string) upstream.SourceStatus
}

// JobRunner runs treatment jobs.
type JobRunner interface {
	Submit(ctx context.Context, req job.Request) (*model.TreatmentJob, error)
	Get(ctx context.Context, id string) (*model.TreatmentJob, error)
}

// Deps are the collaborators the handlers need. Areas and Prober may be nil.
type Deps struct {
	Registry     *water.Registry
	Chores       *water.ChoreTable
	Devices      []water.Device
	Forecaster   *water.Forecaster
	History      water.HistoryProvider
	Areas        water.AreaLister
	Samples      SampleStore
	Prober       SourceProber
	Jobs         JobRunner
	Metrics      *observability.Metrics
	Clock        clockwork.Clock
	Cache        *cache.Cache
	HistoryHours int
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	Deps
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	return &Handler{Deps: d}
}

// knownAreas is the sorted union of registry areas and the data source's areas.
// A failing lister degrades to the registry alone.
func (h *Handler) knownAreas(ctx context.Context) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		key := parse.AreaKey(name)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		names = append(names, parse.AreaName(name))
	}

	for _, n := range h.Registry.Names() {
		add(n)
	}
	if h.Areas != nil {
		listed, err := h.Areas.Areas(ctx)
		if err != nil {
			log.Warnf("failed to list data source areas: %v", err)
		}
		for _, n := range listed {
			add(n)
		}
	}
	slices.Sort(names)
	return names
}

// displayName returns the registry's spelling of area when it is registered.
func (h *Handler) displayName(area string) string {
	if p, err := h.Registry.Lookup(area); err == nil {
		return p.Name
	}
	return parse.AreaName(area)
}

// history loads live history for area. Provider failures are logged and
// treated as no history so callers fall back to baseline data.
func (h *Handler) history(ctx context.Context, area string) []water.Sample {
	samples, err := h.History.History(ctx, area, h.HistoryHours)
	if err != nil {
		log.Warnw("history unavailable, falling back to baseline", "area", area, "error", err)
		return nil
	}
	return samples
}

// latest returns the most recent complete live sample for area, or nil.
// Provider failures are reported as *water.UpstreamUnavailableError.
func (h *Handler) latest(ctx context.Context, area string) (*water.Sample, error) {
	if lp, ok := h.History.(LatestProvider); ok {
		s, err := lp.Latest(ctx, area)
		if err != nil {
			return nil, unavailable("latest", err)
		}
		return s, nil
	}
	samples, err := h.History.History(ctx, area, 0)
	if err != nil {
		return nil, unavailable("latest", err)
	}
	for i := len(samples) - 1; i >= 0; i-- {
		if !samples[i].Partial {
			last := samples[i]
			return &last, nil
		}
	}
	return nil, nil
}

func unavailable(op string, err error) error {
	var ue *water.UpstreamUnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &water.UpstreamUnavailableError{Op: op, Err: err}
}
