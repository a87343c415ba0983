// Package async runs document-processing jobs on a bounded worker pool.
// Each job is one isolated orchestrator run; workers share nothing but the
// queue channel.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/internal/entity"
	"github.com/fintrack-io/docpipe/internal/orchestrator"
	"github.com/fintrack-io/docpipe/internal/repository"
)

// Job is one queued document-processing attempt.
type Job struct {
	DocumentID  uuid.UUID
	TenantID    uuid.UUID
	RunID       string // optional; generated by the orchestrator when empty
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Processor is the slice of the orchestrator the queue needs.
type Processor interface {
	Process(ctx context.Context, req orchestrator.ProcessRequest) orchestrator.Result
}

type RunQueue struct {
	proc    Processor
	runs    repository.RunRepository
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*RunQueue)

func WithWorkers(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewRunQueue starts the worker pool immediately. runs may be nil when run
// auditing is not wired (results are still logged).
func NewRunQueue(proc Processor, runs repository.RunRepository, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunQueue{
		proc:    proc,
		runs:    runs,
		logger:  logger,
		workers: 4,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.runJob(workerID, job)
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunQueue) runJob(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	// Assign the run id here so the audit record and the orchestrator's
	// trace agree on it.
	if job.RunID == "" {
		job.RunID = uuid.New().String()
	}

	start := time.Now()
	res := q.proc.Process(ctx, orchestrator.ProcessRequest{
		DocumentID: job.DocumentID,
		TenantID:   job.TenantID,
		RunID:      job.RunID,
	})
	elapsed := time.Since(start)

	kind, reason := describeResult(res)
	q.logger.Info("queue.job.done",
		"worker_id", workerID, "document_id", job.DocumentID, "run_id", job.RunID,
		"result", kind, "elapsed_ms", elapsed.Milliseconds())

	if q.runs == nil {
		return
	}
	record := &entity.Run{
		ID:         job.RunID,
		DocumentID: job.DocumentID,
		TenantID:   job.TenantID,
		Result:     kind,
		Reason:     reason,
		Elapsed:    elapsed,
	}
	if err := q.runs.SaveRun(ctx, record, res.TraceSteps()); err != nil {
		q.logger.Error("queue.job.audit_failed",
			"worker_id", workerID, "run_id", job.RunID, "error", err)
	}
}

// describeResult flattens a terminal result into its audit-record fields.
func describeResult(res orchestrator.Result) (kind, reason string) {
	switch r := res.(type) {
	case orchestrator.Success:
		return "success", ""
	case orchestrator.NeedsReview:
		return "needs_review", r.Reason
	case orchestrator.Failed:
		return "failed", r.Reason
	default:
		return "failed", "unknown result type"
	}
}

func (q *RunQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.rejected", "document_id", job.DocumentID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueue.ok", "document_id", job.DocumentID)
	default:
		q.logger.Warn("queue.enqueue.backpressure", "document_id", job.DocumentID)
		q.ch <- job
	}
	return nil
}

func (q *RunQueue) Shutdown(ctx context.Context) {
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
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
