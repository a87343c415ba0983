package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRawOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"status":"success"}`, `{"status":"success"}`},
		{"json fence", "```json\n{\"status\":\"success\"}\n```", `{"status":"success"}`},
		{"plain fence", "```\n{\"status\":\"success\"}\n```", `{"status":"success"}`},
		{"prose around object", `Here you go: {"status":"success"} hope that helps`, `{"status":"success"}`},
		{"whitespace", "  \n {\"status\":\"failed\"} \n", `{"status":"failed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeRawOutput(tt.in))
		})
	}
}

func TestContainsPlaceholder(t *testing.T) {
	assert.True(t, containsPlaceholder(`{"totalAmount": "1234.56..."}`))
	assert.True(t, containsPlaceholder(`{"note": "truncated…"}`))
	assert.False(t, containsPlaceholder(`{"totalAmount": "1234.56"}`))
}

func TestParseStrict(t *testing.T) {
	out, err := parseStrict(`{"status":"success","documentType":"INVOICE","extraction":{"totalAmount":"1234.56"},"confidence":0.92}`)
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, "INVOICE", out.DocumentType)
	require.NotNil(t, out.Confidence)
	assert.InDelta(t, 0.92, *out.Confidence, 1e-9)
}

func TestParseStrictRejectsPlaceholders(t *testing.T) {
	_, err := parseStrict(`{"status":"success","extraction":{"totalAmount":"1234.56..."}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestParseStrictRejectsUnknownKeysAndBadShapes(t *testing.T) {
	_, err := parseStrict(`{"status":"success","somethingElse":true}`)
	assert.Error(t, err, "additionalProperties are a strict-parse failure")

	_, err = parseStrict(`{"documentType":"INVOICE"}`)
	assert.Error(t, err, "status is required")

	_, err = parseStrict(`{"status":"success","confidence":1.5}`)
	assert.Error(t, err, "confidence above 1.0 must not strictly validate")

	_, err = parseStrict(`{"status":`)
	assert.Error(t, err)
}

func TestParseLenientCoercions(t *testing.T) {
	raw := `{
		"status": "needs_review",
		"documentType": "RECEIPT",
		"extraction": {"merchant": "Acme"},
		"keywords": "office, supplies , paper",
		"confidence": "0.85",
		"validationPassed": "false",
		"correctionsApplied": 2,
		"unknownKey": {"ignored": true}
	}`
	out, err := parseLenient(raw)
	require.NoError(t, err)
	assert.Equal(t, "needs_review", out.Status)
	assert.Equal(t, "RECEIPT", out.DocumentType)
	assert.Equal(t, []string{"office", "supplies", "paper"}, out.Keywords)
	require.NotNil(t, out.Confidence)
	assert.InDelta(t, 0.85, *out.Confidence, 1e-9)
	require.NotNil(t, out.ValidationPassed)
	assert.False(t, *out.ValidationPassed)
	assert.Equal(t, 2, out.CorrectionsApplied)
}

func TestParseLenientRequiresStatusAndValidJSON(t *testing.T) {
	_, err := parseLenient(`{"documentType":"INVOICE"}`)
	assert.Error(t, err)

	_, err = parseLenient(`{"status":"success", "extraction": {"a`)
	assert.Error(t, err)
}

func TestParseLenientRejectsPlaceholders(t *testing.T) {
	_, err := parseLenient(`{"status":"success","extraction":{"total":"12…"}}`)
	assert.Error(t, err)
}

func TestEffectiveFieldDerivations(t *testing.T) {
	out := &AgentOutput{
		Status: "success",
		Extraction: map[string]any{
			"confidence":    0.7,
			"extractedText": "INVOICE 123",
		},
	}
	assert.InDelta(t, 0.7, out.EffectiveConfidence(), 1e-9)
	assert.Equal(t, "INVOICE 123", out.EffectiveRawText())
	assert.True(t, out.EffectiveValidationPassed(), "no issues means validation passed by default")

	out.Issues = []string{"IBAN invalid"}
	assert.False(t, out.EffectiveValidationPassed())

	// Explicit flag wins over derivation.
	v := true
	out.ValidationPassed = &v
	assert.True(t, out.EffectiveValidationPassed())

	// Top-level confidence wins over the payload's.
	c := 0.95
	out.Confidence = &c
	assert.InDelta(t, 0.95, out.EffectiveConfidence(), 1e-9)

	empty := &AgentOutput{Status: "success"}
	assert.Zero(t, empty.EffectiveConfidence())
	assert.Empty(t, empty.EffectiveRawText())
}
