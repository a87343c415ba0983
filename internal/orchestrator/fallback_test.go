package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/trace"
)

func step(tool string, output any) trace.Step {
	return trace.Step{Action: "tool_call", Tool: tool, Output: output}
}

func TestReconstructFromTrace(t *testing.T) {
	steps := []trace.Step{
		step(constants.ToolGetDocumentImage, map[string]any{"success": true}),
		step(constants.ToolExtractInvoice, map[string]any{
			"totalAmount":   "1234.56",
			"extractedText": "INVOICE 2024-001",
		}),
	}
	out, contactID := reconstructFromTrace(steps)
	require.NotNil(t, out)
	assert.Empty(t, contactID)
	assert.Equal(t, "needs_review", out.Status)
	assert.Equal(t, "INVOICE", out.DocumentType)
	assert.Equal(t, "1234.56", out.Extraction["totalAmount"])
	assert.Equal(t, "INVOICE 2024-001", out.RawText)
	assert.Equal(t, "Reconstructed from execution trace after unparsable agent output", out.Reason)
	assert.NotEmpty(t, out.Issues)
}

func TestReconstructFromTracePicksMostRecentExtraction(t *testing.T) {
	steps := []trace.Step{
		step(constants.ToolExtractReceipt, map[string]any{"merchant": "first pass"}),
		step(constants.ToolExtractInvoice, map[string]any{"supplier": "second pass"}),
	}
	out, _ := reconstructFromTrace(steps)
	require.NotNil(t, out)
	assert.Equal(t, "INVOICE", out.DocumentType)
	assert.Equal(t, "second pass", out.Extraction["supplier"])
}

func TestReconstructFromTraceNoExtraction(t *testing.T) {
	steps := []trace.Step{
		step(constants.ToolGetDocumentImage, map[string]any{"success": true}),
		step(constants.ToolExtractInvoice, nil),
		step(constants.ToolExtractBill, "not a map"),
	}
	out, _ := reconstructFromTrace(steps)
	assert.Nil(t, out)
}

func TestRecoverContactIDPrefersStoreStep(t *testing.T) {
	steps := []trace.Step{
		step(constants.ToolLookupContact, map[string]any{
			"found": true, "matchType": "EXACT", "contactId": "lookup-id",
		}),
		step(constants.ToolStoreExtraction, map[string]any{
			"success": true, "linkedContactId": "store-id",
		}),
	}
	assert.Equal(t, "store-id", recoverContactID(steps))
}

func TestRecoverContactIDFallsBackToExactLookup(t *testing.T) {
	steps := []trace.Step{
		step(constants.ToolLookupContact, map[string]any{
			"found": true, "matchType": "EXACT", "contactId": "lookup-id",
		}),
	}
	assert.Equal(t, "lookup-id", recoverContactID(steps))
}

func TestRecoverContactIDIgnoresWeakEvidence(t *testing.T) {
	steps := []trace.Step{
		// A suggestion is not a confirmed identity decision.
		step(constants.ToolStoreExtraction, map[string]any{
			"success": true, "suggestedContactId": "suggested-id",
		}),
		step(constants.ToolLookupContact, map[string]any{
			"found": true, "matchType": "FUZZY", "contactId": "fuzzy-id",
		}),
		step(constants.ToolLookupContact, map[string]any{
			"found": false, "matchType": "EXACT", "contactId": "not-found-id",
		}),
	}
	assert.Empty(t, recoverContactID(steps))
}

func TestMergeOutputsParsedFieldsWin(t *testing.T) {
	conf := 0.8
	parsed := &AgentOutput{
		Status:     "needs_review",
		Extraction: map[string]any{"totalAmount": "99.00"},
		Confidence: &conf,
		Issues:     []string{"missing supplier VAT", "shared issue"},
	}
	fallback := &AgentOutput{
		Status:       "needs_review",
		DocumentType: "INVOICE",
		Extraction:   map[string]any{"totalAmount": "stale"},
		RawText:      "raw from trace",
		ContactID:    "trace-contact",
		Issues:       []string{"shared issue", "recovered from trace"},
	}

	merged := mergeOutputs(parsed, fallback)
	assert.Equal(t, "needs_review", merged.Status)
	assert.Equal(t, "INVOICE", merged.DocumentType, "fallback fills what parsed lacks")
	assert.Equal(t, "99.00", merged.Extraction["totalAmount"], "parsed extraction wins")
	assert.Equal(t, "raw from trace", merged.RawText)
	assert.Equal(t, "trace-contact", merged.ContactID)
	require.NotNil(t, merged.Confidence)
	assert.InDelta(t, 0.8, *merged.Confidence, 1e-9)
	assert.Equal(t, []string{"shared issue", "recovered from trace", "missing supplier VAT"}, merged.Issues)
}
