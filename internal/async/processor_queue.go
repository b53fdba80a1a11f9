package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"ocrworker/internal/job"
	"ocrworker/internal/store"
)

// JobRunner is what a worker calls to execute one job. Satisfied by
// handler.Handler; stubbed in tests.
type JobRunner interface {
	Handle(ctx context.Context, req job.Request) job.Result
}

// Notifier receives the journal record of every finished job.
type Notifier func(rec store.Record)

type ProcessorQueue struct {
	runner   JobRunner
	journal  *store.Journal
	notifier Notifier
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(runner JobRunner, journal *store.Journal, notifier Notifier, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		runner:   runner,
		journal:  journal,
		notifier: notifier,
		logger:   logger,
		workers:  2,
		timeout:  35 * time.Minute,
		ch:       make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for j := range q.ch {
					q.process(workerID, j)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	started := time.Now()
	res := q.runner.Handle(ctx, j.Request)
	finished := time.Now()

	rec := store.Record{
		ID:         j.ID.String(),
		Source:     j.Request.SourceKind(),
		Status:     res.Status,
		Command:    res.Command,
		ReturnCode: res.ReturnCode,
		TimedOut:   res.TimedOut,
		Stderr:     res.Stderr,
		OutputDir:  res.OutputDir,
		CreatedAt:  j.SubmittedAt,
		FinishedAt: &finished,
		DurationMS: finished.Sub(started).Milliseconds(),
	}
	if rec.Source == "" {
		rec.Source = "invalid"
	}

	if q.journal != nil {
		if err := q.journal.Insert(ctx, rec); err != nil {
			q.logger.Error("journal write failed", "worker_id", workerID, "job_id", j.ID, "error", err)
		}
	}
	if q.notifier != nil {
		q.notifier(rec)
	}

	if res.Status == job.StatusFailed {
		q.logger.Error("processing failed", "worker_id", workerID, "job_id", j.ID, "kind", res.Error)
	} else {
		q.logger.Info("processed job successfully", "worker_id", workerID, "job_id", j.ID)
	}
}

func (q *ProcessorQueue) Enqueue(_ context.Context, j Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", j.ID)
		return nil
	}
	select {
	case q.ch <- j:
		q.logger.Info("queued job", "job_id", j.ID, "source", j.Request.SourceKind())
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", j.ID)
		q.ch <- j
	}
	return nil
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
