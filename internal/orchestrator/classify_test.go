package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/trace"
)

func TestClassifySuccess(t *testing.T) {
	conf := 0.92
	out := &AgentOutput{
		Status:       "success",
		DocumentType: "INVOICE",
		Extraction: map[string]any{
			"totalAmount":   "1234.56",
			"exampleUsedId": "ex-42",
		},
		Confidence:         &conf,
		Description:        "Office supplies invoice",
		Keywords:           []string{"office", "supplies"},
		CorrectionsApplied: 1,
		ContactID:          "c-1",
		ContactCreated:     true,
	}
	steps := []trace.Step{{Index: 1, Action: "tool_call", Tool: constants.ToolStoreExtraction}}

	res := classify(out, steps)
	s, ok := res.(Success)
	require.True(t, ok)
	assert.Equal(t, constants.Invoice, s.DocumentType)
	assert.InDelta(t, 0.92, s.Confidence, 1e-9)
	assert.Equal(t, "Office supplies invoice", s.Description)
	assert.Equal(t, "ex-42", s.ExampleUsedID)
	assert.Equal(t, "c-1", s.ContactID)
	assert.True(t, s.ContactCreated)
	assert.True(t, s.ValidationPassed)
	assert.Equal(t, 1, s.CorrectionsApplied)
	assert.Len(t, s.TraceSteps(), 1)
}

func TestClassifySuccessWithoutExtractionFails(t *testing.T) {
	res := classify(&AgentOutput{Status: "success", DocumentType: "INVOICE"}, nil)
	f, ok := res.(Failed)
	require.True(t, ok)
	assert.Equal(t, "Missing documentType or extraction in orchestrator output", f.Reason)
	assert.Equal(t, StageOrchestrator, f.Stage)

	res = classify(&AgentOutput{Status: "success", Extraction: map[string]any{"a": 1}}, nil)
	_, ok = res.(Failed)
	assert.True(t, ok, "missing documentType is equally lossy")
}

func TestClassifyNeedsReview(t *testing.T) {
	res := classify(&AgentOutput{
		Status:       "needs_review",
		DocumentType: "RECEIPT",
		Extraction:   map[string]any{"merchant": "Acme"},
		Issues:       []string{"total does not match line items"},
	}, nil)
	nr, ok := res.(NeedsReview)
	require.True(t, ok)
	assert.Equal(t, "Needs review", nr.Reason, "default reason when the agent gives none")
	assert.Equal(t, []string{"total does not match line items"}, nr.Issues)

	res = classify(&AgentOutput{Status: "needs_review", Reason: "VAT lookup ambiguous"}, nil)
	nr, ok = res.(NeedsReview)
	require.True(t, ok)
	assert.Equal(t, "VAT lookup ambiguous", nr.Reason)
}

func TestClassifyFailedAndUnknownStatus(t *testing.T) {
	res := classify(&AgentOutput{Status: "failed", Reason: "document is blank"}, nil)
	f, ok := res.(Failed)
	require.True(t, ok)
	assert.Equal(t, "document is blank", f.Reason)
	assert.Equal(t, StageOrchestrator, f.Stage)

	res = classify(&AgentOutput{Status: "done"}, nil)
	f, ok = res.(Failed)
	require.True(t, ok)
	assert.Equal(t, "Unknown orchestrator status: done", f.Reason)
}

func TestAppendNonCriticalIssues(t *testing.T) {
	out := &AgentOutput{Status: "success"}
	steps := []trace.Step{
		{Action: "tool_call", Tool: constants.ToolStoreChunks, Note: "chunk store unavailable"},
		{Action: "tool_call", Tool: constants.ToolExtractInvoice, Note: "timeout"},
		{Action: "tool_call", Tool: constants.ToolIndexExample, Note: ""},
		{Action: "tool_call", Tool: constants.ToolStoreChunks, Note: "chunk store unavailable"},
	}
	appendNonCriticalIssues(out, steps)
	assert.Equal(t, []string{"store_chunks failed: chunk store unavailable"}, out.Issues,
		"only non-critical tool failures surface, and duplicates collapse")
}
