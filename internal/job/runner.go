// Package job runs simulated treatment jobs on a worker pool.
package job

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"water-quality-backend/config"
	"water-quality-backend/internal/log"
	"water-quality-backend/internal/model"
	"water-quality-backend/internal/observability"
	"water-quality-backend/internal/water"
)

const (
	minRunTime     = 100 * time.Millisecond
	abandonTimeout = 5 * time.Second
)

// ErrShutdown is recorded on jobs still queued when the workers stop.
var ErrShutdown = errors.New("service shut down before the job started")

// Store persists treatment jobs.
type Store interface {
	CreateJob(ctx context.Context, job *model.TreatmentJob) error
	UpdateJob(ctx context.Context, job *model.TreatmentJob) error
	GetJob(ctx context.Context, id string) (*model.TreatmentJob, error)
}

// Request describes a treatment to run. Nil flow and efficiency fall back to
// the configured defaults.
type Request struct {
	Area              string
	Device            string
	VolumeLiters      float64
	FlowLPerMin       *float64
	RemovalEfficiency *float64
	InitialHardness   float64
}

// Runner accepts treatment requests and executes them in the background.
type Runner struct {
	cfg     *config.TreatmentConfig
	store   Store
	pool    *WorkerPool
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewRunner creates a runner with a pool of the given size. Call Start before submitting.
func NewRunner(cfg *config.TreatmentConfig, poolCfg config.WorkerPoolConfig, store Store, metrics *observability.Metrics, clock clockwork.Clock) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &Runner{
		cfg:     cfg,
		store:   store,
		metrics: metrics,
		clock:   clock,
	}
	r.pool = NewWorkerPool(poolCfg.Size, poolCfg.QueueSize, r.run)
	r.pool.OnDrop(r.abandon)
	return r
}

// Start launches the workers; they stop when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.pool.Start(ctx)
}

// Submit validates req, stores a queued job and hands it to the pool.
func (r *Runner) Submit(ctx context.Context, req Request) (*model.TreatmentJob, error) {
	if strings.TrimSpace(req.Area) == "" {
		return nil, &water.InvalidInputError{Field: "area", Reason: "is required"}
	}
	if strings.TrimSpace(req.Device) == "" {
		return nil, &water.InvalidInputError{Field: "device", Reason: "is required"}
	}
	if math.IsNaN(req.VolumeLiters) || req.VolumeLiters <= 0 {
		return nil, &water.InvalidInputError{Field: "volume_liters", Reason: "must be greater than 0"}
	}

	d := water.Device{
		Name:              req.Device,
		FlowLPerMin:       r.cfg.DefaultFlowLPerMin,
		RemovalEfficiency: r.cfg.DefaultRemovalEfficiency,
	}
	if req.FlowLPerMin != nil {
		d.FlowLPerMin = *req.FlowLPerMin
	}
	if req.RemovalEfficiency != nil {
		d.RemovalEfficiency = *req.RemovalEfficiency
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	j := &model.TreatmentJob{
		ID:                uuid.NewString(),
		Area:              req.Area,
		Device:            req.Device,
		VolumeLiters:      req.VolumeLiters,
		FlowLPerMin:       d.FlowLPerMin,
		RemovalEfficiency: d.RemovalEfficiency,
		InitialHardness:   req.InitialHardness,
		Status:            model.JobQueued,
	}
	if d.FlowLPerMin > 0 {
		minutes, err := water.TreatmentMinutes(req.VolumeLiters, d.FlowLPerMin)
		if err != nil {
			return nil, err
		}
		j.EstimatedMinutes = &minutes
	}

	if err := r.store.CreateJob(ctx, j); err != nil {
		return nil, err
	}

	if err := r.pool.Dispatch(j.ID); err != nil {
		r.metrics.TreatmentJobs.WithLabelValues("rejected").Inc()
		r.fail(ctx, j, err)
		return nil, err
	}

	r.metrics.TreatmentJobs.WithLabelValues(model.JobQueued).Inc()
	log.Infow("treatment job queued", "job_id", j.ID, "area", j.Area, "device", j.Device, "volume_liters", j.VolumeLiters)
	return j, nil
}

// Get returns a job by ID.
func (r *Runner) Get(ctx context.Context, id string) (*model.TreatmentJob, error) {
	return r.store.GetJob(ctx, id)
}

// RunTime is the wall time a job simulates: one second per estimated minute,
// divided by the time scale, never shorter than minRunTime.
func (r *Runner) RunTime(estimatedMinutes *float64) time.Duration {
	minutes := 0.0
	if estimatedMinutes != nil {
		minutes = *estimatedMinutes
	}
	ns := minutes / r.cfg.TimeScale * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return max(time.Duration(ns), minRunTime)
}

func (r *Runner) run(ctx context.Context, id string) {
	j, err := r.store.GetJob(ctx, id)
	if err != nil {
		log.Errorf("failed to load treatment job %s: %v", id, err)
		return
	}

	r.metrics.TreatmentJobsInFly.Inc()
	defer r.metrics.TreatmentJobsInFly.Dec()

	started := r.clock.Now()
	j.Status = model.JobRunning
	j.Progress = 0
	j.StartedAt = &started
	if err := r.store.UpdateJob(ctx, j); err != nil {
		log.Errorf("failed to mark treatment job %s running: %v", id, err)
		return
	}

	steps := max(r.cfg.ProgressSteps, 1)
	stepTime := r.RunTime(j.EstimatedMinutes) / time.Duration(steps)
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			r.fail(context.WithoutCancel(ctx), j, fmt.Errorf("cancelled: %w", ctx.Err()))
			return
		case <-r.clock.After(stepTime):
		}

		j.Progress = i * 100 / steps
		if i < steps {
			if err := r.store.UpdateJob(ctx, j); err != nil {
				r.fail(ctx, j, err)
				return
			}
		}
	}

	final := math.Round(max(0, (1-j.RemovalEfficiency)*j.InitialHardness)*100) / 100
	finished := r.clock.Now()
	j.Status = model.JobCompleted
	j.Progress = 100
	j.FinalHardness = &final
	j.FinishedAt = &finished
	if err := r.store.UpdateJob(ctx, j); err != nil {
		log.Errorf("failed to complete treatment job %s: %v", id, err)
		return
	}

	r.metrics.TreatmentJobs.WithLabelValues(model.JobCompleted).Inc()
	log.Infow("treatment job completed", "job_id", id, "final_hardness_mg_l", final)
}

// abandon fails a job that was still queued when the workers stopped.
func (r *Runner) abandon(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), abandonTimeout)
	defer cancel()
	j, err := r.store.GetJob(ctx, id)
	if err != nil {
		log.Errorf("failed to load abandoned treatment job %s: %v", id, err)
		return
	}
	r.fail(ctx, j, ErrShutdown)
}

func (r *Runner) fail(ctx context.Context, j *model.TreatmentJob, cause error) {
	finished := r.clock.Now()
	j.Status = model.JobFailed
	j.Error = cause.Error()
	j.FinishedAt = &finished
	if err := r.store.UpdateJob(ctx, j); err != nil {
		log.Errorf("failed to mark treatment job %s failed: %v", j.ID, errors.Join(cause, err))
	}
	r.metrics.TreatmentJobs.WithLabelValues(model.JobFailed).Inc()
	log.Warnw("treatment job failed", "job_id", j.ID, "error", cause)
}
