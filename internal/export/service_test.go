package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/entity"
	"github.com/fintrack-io/docpipe/internal/repository"
	"github.com/fintrack-io/docpipe/internal/trace"
)

func TestExportRunAuditXLSX(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DB.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db, logger))

	runs := repository.NewRunRepository(db, logger)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, runs.SaveRun(ctx, &entity.Run{
		ID:         "run-1",
		DocumentID: uuid.New(),
		TenantID:   tenantID,
		Result:     "success",
		Elapsed:    2 * time.Second,
	}, []trace.Step{
		{Index: 1, Action: "tool_call", Tool: constants.ToolExtractInvoice,
			Duration: 300 * time.Millisecond, Output: map[string]any{"supplier": "Acme BV"}},
		{Index: 2, Action: "parse_strict"},
	}))
	require.NoError(t, runs.SaveRun(ctx, &entity.Run{
		ID:         "run-2",
		DocumentID: uuid.New(),
		TenantID:   tenantID,
		Result:     "failed",
		Reason:     "Failed to parse orchestrator output",
	}, nil))

	svc := NewService(runs, logger)
	data, err := svc.ExportRunAuditXLSX(ctx, tenantID, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	runRows, err := wb.GetRows("Runs")
	require.NoError(t, err)
	require.Len(t, runRows, 3, "header plus two runs")
	assert.Equal(t, "Run ID", runRows[0][0])
	assert.Equal(t, "run-1", runRows[1][0])
	assert.Equal(t, "success", runRows[1][2])
	assert.Equal(t, "run-2", runRows[2][0])
	assert.Equal(t, "Failed to parse orchestrator output", runRows[2][3])

	stepRows, err := wb.GetRows("Steps")
	require.NoError(t, err)
	require.Len(t, stepRows, 3, "header plus two steps")
	assert.Equal(t, "extract_invoice", stepRows[1][3])
	assert.Contains(t, stepRows[1][6], "Acme BV")
}

func TestCompactJSONTruncatesAtRuneBoundary(t *testing.T) {
	payload := map[string]any{"note": strings.Repeat("é", 3000)}

	cell := compactJSON(payload)
	assert.True(t, utf8.ValidString(cell), "truncation must not split a rune")
	assert.True(t, strings.HasSuffix(cell, "…"))
	assert.LessOrEqual(t, len(cell), 2000+len("…"))
}

func TestExportRunAuditXLSXEmptyTenant(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DB.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db, logger))

	svc := NewService(repository.NewRunRepository(db, logger), logger)
	data, err := svc.ExportRunAuditXLSX(context.Background(), uuid.New(), nil, nil)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows("Runs")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
