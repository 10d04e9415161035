package job

import (
	"context"
	"errors"

	"water-quality-backend/internal/log"
)

// ErrQueueFull is returned by Dispatch when every queue slot is taken.
var ErrQueueFull = errors.New("treatment queue is full")

// WorkerPool runs queued job IDs on a fixed number of goroutines.
type WorkerPool struct {
	size    int
	jobs    chan string
	process func(ctx context.Context, id string)
	drop    func(id string)
}

// NewWorkerPool creates a new worker pool. queueSize bounds pending jobs.
func NewWorkerPool(size, queueSize int, process func(ctx context.Context, id string)) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, queueSize),
		process: process,
	}
}

// OnDrop sets the callback for jobs still queued when the workers stop.
// It must be called before Start.
func (wp *WorkerPool) OnDrop(fn func(id string)) {
	wp.drop = fn
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debugf("treatment worker %d started", id)
	for {
		select {
		case jobID := <-wp.jobs:
			if ctx.Err() != nil {
				wp.dropJob(jobID)
				wp.drain()
				return
			}
			log.Debugf("treatment worker %d processing job %s", id, jobID)
			wp.process(ctx, jobID)
		case <-ctx.Done():
			log.Debugf("treatment worker %d shutting down", id)
			wp.drain()
			return
		}
	}
}

// drain drops every job left in the queue.
func (wp *WorkerPool) drain() {
	for {
		select {
		case jobID := <-wp.jobs:
			wp.dropJob(jobID)
		default:
			return
		}
	}
}

func (wp *WorkerPool) dropJob(jobID string) {
	if wp.drop == nil {
		log.Warnf("dropping queued treatment job %s", jobID)
		return
	}
	wp.drop(jobID)
}

// Dispatch queues a job without blocking.
func (wp *WorkerPool) Dispatch(jobID string) error {
	select {
	case wp.jobs <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan string {
	return wp.jobs
}
