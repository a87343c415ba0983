package async

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-io/docpipe/internal/orchestrator"
	"github.com/fintrack-io/docpipe/internal/repository"
)

type countingProcessor struct {
	mu   sync.Mutex
	reqs []orchestrator.ProcessRequest
	res  orchestrator.Result
}

func (p *countingProcessor) Process(ctx context.Context, req orchestrator.ProcessRequest) orchestrator.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	return p.res
}

func (p *countingProcessor) requests() []orchestrator.ProcessRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]orchestrator.ProcessRequest{}, p.reqs...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunQueueProcessesAndAudits(t *testing.T) {
	logger := testLogger()
	db, err := repository.OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DB.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db, logger))
	runs := repository.NewRunRepository(db, logger)

	proc := &countingProcessor{res: orchestrator.Success{DocumentType: "INVOICE"}}
	q := NewRunQueue(proc, runs, logger, WithWorkers(2), WithQueueSize(8))

	tenantID := uuid.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{
			DocumentID: uuid.New(),
			TenantID:   tenantID,
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Len(t, proc.requests(), 5)
	for _, req := range proc.requests() {
		assert.NotEmpty(t, req.RunID, "the queue assigns the run id before processing")
	}

	saved, err := runs.ListRuns(context.Background(), tenantID, nil, nil)
	require.NoError(t, err)
	require.Len(t, saved, 5)
	for _, r := range saved {
		assert.Equal(t, "success", r.Result)
	}
}

func TestRunQueueRecordsFailureReason(t *testing.T) {
	logger := testLogger()
	db, err := repository.OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DB.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db, logger))
	runs := repository.NewRunRepository(db, logger)

	proc := &countingProcessor{res: orchestrator.Failed{
		Reason: "Failed to parse orchestrator output",
		Stage:  orchestrator.StageOrchestrator,
	}}
	q := NewRunQueue(proc, runs, logger, WithWorkers(1))

	tenantID := uuid.New()
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New(), TenantID: tenantID}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	saved, err := runs.ListRuns(context.Background(), tenantID, nil, nil)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "failed", saved[0].Result)
	assert.Equal(t, "Failed to parse orchestrator output", saved[0].Reason)
}

func TestRunQueueEnqueueAfterShutdownIsNoop(t *testing.T) {
	proc := &countingProcessor{res: orchestrator.Success{}}
	q := NewRunQueue(proc, nil, testLogger(), WithWorkers(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	assert.Empty(t, proc.requests())
}
