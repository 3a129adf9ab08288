// Package jobs runs background work submitted by request handlers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrDuplicateJob = errors.New("job with this key is already queued or running")
	ErrQueueClosed  = errors.New("job queue is closed")
	ErrQueueFull    = errors.New("job queue is full")
)

// Job is a unit of background work. Key identifies the job; at most one job per key is
// queued or running at any time. OnDone, when set, is called exactly once with the
// result of Run.
type Job struct {
	Key    string
	Run    func(ctx context.Context) error
	OnDone func(err error)
}

// Runner accepts jobs for execution
type Runner interface {
	Submit(job Job) error
}

// Queue is a fixed-size worker pool fed by a buffered channel
type Queue struct {
	logger  *zap.Logger
	workers int
	jobs    chan Job

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool

	wg sync.WaitGroup
}

// NewQueue creates a queue with the given worker count and buffer size
func NewQueue(workers, buffer int, logger *zap.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		logger:   logger,
		workers:  workers,
		jobs:     make(chan Job, buffer),
		inflight: make(map[string]struct{}),
	}
}

// Start launches the workers. Jobs run with ctx; cancelling it does not abort jobs that
// are already running, it only stops them from observing a live context.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			for job := range q.jobs {
				q.execute(ctx, job)
			}
			q.logger.Debug("job worker stopped", zap.Int("worker", id))
		}(i)
	}
	q.logger.Info("job queue started", zap.Int("workers", q.workers))
}

// Submit enqueues job without blocking
func (q *Queue) Submit(job Job) error {
	if job.Key == "" {
		return errors.New("job key is required")
	}
	if job.Run == nil {
		return errors.New("job run function is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.inflight[job.Key]; ok {
		return ErrDuplicateJob
	}

	select {
	case q.jobs <- job:
		q.inflight[job.Key] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued and running jobs to finish
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job queue shutdown: %w", ctx.Err())
	}
}

func (q *Queue) execute(ctx context.Context, job Job) {
	err := runSafely(ctx, job)

	q.mu.Lock()
	delete(q.inflight, job.Key)
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("job failed", zap.String("job", job.Key), zap.Error(err))
	}
	if job.OnDone != nil {
		job.OnDone(err)
	}
}

func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Key, r)
		}
	}()
	return job.Run(ctx)
}

// Inline runs each job synchronously inside Submit. Tests use it to make background
// flows deterministic.
type Inline struct {
	Ctx context.Context
}

// Submit runs job to completion before returning
func (r Inline) Submit(job Job) error {
	ctx := r.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	err := runSafely(ctx, job)
	if job.OnDone != nil {
		job.OnDone(err)
	}
	return nil
}
