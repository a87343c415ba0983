package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/fintrack-io/docpipe/internal/common"
	"github.com/fintrack-io/docpipe/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for
// run-audit exports.
type Service struct {
	runs   repository.RunRepository
	logger *slog.Logger
}

func NewService(runs repository.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// ExportRunAuditXLSX returns an XLSX workbook (as bytes) with one sheet of
// runs and one sheet of their trace steps, for the given tenant and date
// window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all runs for the tenant.
func (s *Service) ExportRunAuditXLSX(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC).
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		now := time.Now().UTC()
		t := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	runs, err := s.runs.ListRuns(ctx, tenantID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	f := excelize.NewFile()
	const runsSheet = "Runs"
	const stepsSheet = "Steps"
	if err := f.SetSheetName("Sheet1", runsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(stepsSheet); err != nil {
		return nil, err
	}
	if idx, _ := f.GetSheetIndex(runsSheet); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	runHeaders := []string{"Run ID", "Document ID", "Result", "Reason", "Elapsed (ms)", "Started At"}
	for i, h := range runHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(runsSheet, cell, h)
	}
	stepHeaders := []string{"Run ID", "Step", "Action", "Tool", "Duration (ms)", "Note", "Output"}
	for i, h := range stepHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(stepsSheet, cell, h)
	}

	runRow, stepRow := 2, 2
	for _, run := range runs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, runRow)
			_ = f.SetCellValue(runsSheet, cell, v)
		}
		write(1, run.ID)
		write(2, run.DocumentID.String())
		write(3, run.Result)
		write(4, run.Reason)
		write(5, run.Elapsed.Milliseconds())
		write(6, run.CreatedAt.UTC().Format(time.RFC3339))
		runRow++

		steps, err := s.runs.ListSteps(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("query steps for run %s: %w", run.ID, err)
		}
		for _, st := range steps {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, stepRow)
				_ = f.SetCellValue(stepsSheet, cell, v)
			}
			write(1, st.RunID)
			write(2, st.Index)
			write(3, st.Action)
			write(4, st.Tool)
			write(5, st.DurationMS)
			write(6, st.Note)
			write(7, compactJSON(st.Output))
			stepRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.run_audit.ok",
		"tenant_id", tenantID, "runs", len(runs),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// compactJSON renders a step payload as a single cell value. Long payloads
// are truncated; a spreadsheet is for review, not replay.
func compactJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	const maxCell = 2000
	s := string(b)
	if len(s) > maxCell {
		s = common.Truncate(s, maxCell) + "…"
	}
	return s
}
