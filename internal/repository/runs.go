package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/internal/entity"
	"github.com/fintrack-io/docpipe/internal/trace"
)

// RunRepository persists run audit records and their trace steps for later
// export and review.
type RunRepository interface {
	SaveRun(ctx context.Context, run *entity.Run, steps []trace.Step) error
	ListRuns(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]*entity.Run, error)
	ListSteps(ctx context.Context, runID string) ([]*entity.RunStep, error)
}

type runRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepository{db: db, logger: logger}
}

func (r *runRepository) SaveRun(ctx context.Context, run *entity.Run, steps []trace.Step) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, r.db.rebind(
		`INSERT INTO runs (id, document_id, tenant_id, result, reason, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.DocumentID.String(), run.TenantID.String(),
		run.Result, run.Reason, run.Elapsed.Milliseconds(), run.CreatedAt); err != nil {
		r.logger.Error("run.save.failed", "run_id", run.ID, "error", err)
		return err
	}

	for _, s := range steps {
		input, output := marshalStepPayload(s.Input), marshalStepPayload(s.Output)
		if _, err := tx.ExecContext(ctx, r.db.rebind(
			`INSERT INTO run_steps (run_id, idx, action, tool, duration_ms, input, output, note)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			run.ID, s.Index, s.Action, s.Tool, s.Duration.Milliseconds(),
			input, output, s.Note); err != nil {
			r.logger.Error("run.save_step.failed", "run_id", run.ID, "idx", s.Index, "error", err)
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.logger.Info("run.save.ok", "run_id", run.ID, "result", run.Result, "steps", len(steps))
	return nil
}

// marshalStepPayload serializes a step input/output for storage. Payloads
// that don't marshal (tool results holding exotic types) are dropped rather
// than failing the audit write.
func marshalStepPayload(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func (r *runRepository) ListRuns(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]*entity.Run, error) {
	query := `SELECT id, document_id, tenant_id, result, reason, elapsed_ms, created_at FROM runs WHERE tenant_id = ?`
	args := []any{tenantID.String()}
	if from != nil {
		query += ` AND created_at >= ?`
		args = append(args, *from)
	}
	if to != nil {
		query += ` AND created_at <= ?`
		args = append(args, *to)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		r.logger.Error("run.list.failed", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []*entity.Run
	for rows.Next() {
		var (
			run       entity.Run
			docStr    string
			tenantStr string
			elapsedMS int64
		)
		if err := rows.Scan(&run.ID, &docStr, &tenantStr, &run.Result, &run.Reason, &elapsedMS, &run.CreatedAt); err != nil {
			return nil, err
		}
		if run.DocumentID, err = uuid.Parse(docStr); err != nil {
			return nil, err
		}
		if run.TenantID, err = uuid.Parse(tenantStr); err != nil {
			return nil, err
		}
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (r *runRepository) ListSteps(ctx context.Context, runID string) ([]*entity.RunStep, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(
		`SELECT run_id, idx, action, tool, duration_ms, input, output, note
		 FROM run_steps WHERE run_id = ? ORDER BY idx`), runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var steps []*entity.RunStep
	for rows.Next() {
		var (
			s          entity.RunStep
			inputJSON  sql.NullString
			outputJSON sql.NullString
		)
		if err := rows.Scan(&s.RunID, &s.Index, &s.Action, &s.Tool, &s.DurationMS, &inputJSON, &outputJSON, &s.Note); err != nil {
			return nil, err
		}
		if inputJSON.Valid && inputJSON.String != "" {
			_ = json.Unmarshal([]byte(inputJSON.String), &s.Input)
		}
		if outputJSON.Valid && outputJSON.String != "" {
			_ = json.Unmarshal([]byte(outputJSON.String), &s.Output)
		}
		steps = append(steps, &s)
	}
	return steps, rows.Err()
}
