package orchestrator

import (
	"strconv"
)

// AgentOutput is the structured shape the agent is contracted to emit as its
// final message: one JSON object, optionally fenced in markdown. All fields
// except status are optional; absence means "unknown", never "false"/"empty"
// — the Effective* helpers implement the derivation rules.
type AgentOutput struct {
	Status             string         `json:"status"`
	DocumentType       string         `json:"documentType,omitempty"`
	Extraction         map[string]any `json:"extraction,omitempty"`
	RawText            string         `json:"rawText,omitempty"`
	Description        string         `json:"description,omitempty"`
	Keywords           []string       `json:"keywords,omitempty"`
	Confidence         *float64       `json:"confidence,omitempty"`
	ValidationPassed   *bool          `json:"validationPassed,omitempty"`
	CorrectionsApplied int            `json:"correctionsApplied,omitempty"`
	ContactID          string         `json:"contactId,omitempty"`
	ContactCreated     bool           `json:"contactCreated,omitempty"`
	Issues             []string       `json:"issues,omitempty"`
	Reason             string         `json:"reason,omitempty"`
}

// Complete reports whether the output carries both a document type and an
// extraction payload.
func (o *AgentOutput) Complete() bool {
	return o.DocumentType != "" && o.Extraction != nil
}

// EffectiveConfidence resolves the run confidence: the top-level field when
// set, else the extraction payload's own confidence field, else 0.0.
func (o *AgentOutput) EffectiveConfidence() float64 {
	if o.Confidence != nil {
		return *o.Confidence
	}
	if o.Extraction != nil {
		switch v := o.Extraction["confidence"].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0.0
}

// EffectiveRawText resolves the raw text: the top-level field when set, else
// the extraction payload's extractedText field.
func (o *AgentOutput) EffectiveRawText() string {
	if o.RawText != "" {
		return o.RawText
	}
	if o.Extraction != nil {
		if s, ok := o.Extraction["extractedText"].(string); ok {
			return s
		}
	}
	return ""
}

// EffectiveValidationPassed resolves validationPassed: the explicit flag when
// set, else derived from issue-list emptiness.
func (o *AgentOutput) EffectiveValidationPassed() bool {
	if o.ValidationPassed != nil {
		return *o.ValidationPassed
	}
	return len(o.Issues) == 0
}

// exampleUsedID pulls the few-shot example reference out of the extraction
// payload when the extraction tools recorded one.
func (o *AgentOutput) exampleUsedID() string {
	if o.Extraction == nil {
		return ""
	}
	if s, ok := o.Extraction["exampleUsedId"].(string); ok {
		return s
	}
	return ""
}

// BuildOutputSchema returns the JSON-Schema (draft 2020-12 subset) the
// agent's final output must satisfy, as a generic map. Shown to the model in
// the system prompt and used locally by the strict parse stage.
func BuildOutputSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"status"},
		"properties": map[string]any{
			"status":             map[string]any{"type": "string"},
			"documentType":       map[string]any{"type": "string"},
			"extraction":         map[string]any{"type": "object"},
			"rawText":            map[string]any{"type": "string"},
			"description":        map[string]any{"type": "string"},
			"keywords":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"confidence":         map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"validationPassed":   map[string]any{"type": "boolean"},
			"correctionsApplied": map[string]any{"type": "integer", "minimum": 0},
			"contactId":          map[string]any{"type": "string"},
			"contactCreated":     map[string]any{"type": "boolean"},
			"issues":             map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"reason":             map[string]any{"type": "string"},
		},
	}
}
