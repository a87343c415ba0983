package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Placeholder tokens. An output containing either anywhere is truncated or
// evasive model data and must never be accepted as complete.
const (
	placeholderASCII    = "..."
	placeholderEllipsis = "…"
)

// containsPlaceholder is the hard gate applied at every cascade stage.
func containsPlaceholder(s string) bool {
	return strings.Contains(s, placeholderASCII) || strings.Contains(s, placeholderEllipsis)
}

// normalizeRawOutput strips markdown fencing and trims to the outermost JSON
// object, since the model is allowed to wrap its single JSON object in a
// ```json fence.
func normalizeRawOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

var (
	outputSchemaOnce sync.Once
	outputSchema     *jsonschema.Schema
	outputSchemaErr  error
)

func compiledOutputSchema() (*jsonschema.Schema, error) {
	outputSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildOutputSchema())
		if err != nil {
			outputSchemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("agent_output.json", bytes.NewReader(b)); err != nil {
			outputSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		outputSchema, outputSchemaErr = compiler.Compile("agent_output.json")
	})
	return outputSchema, outputSchemaErr
}

// parseStrict decodes the normalized raw text directly against the
// AgentOutput schema. It succeeds only with a schema-conformant object and
// no placeholder tokens.
func parseStrict(raw string) (*AgentOutput, error) {
	if containsPlaceholder(raw) {
		return nil, fmt.Errorf("placeholder token detected")
	}
	schema, err := compiledOutputSchema()
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("json does not match schema: %w", err)
	}
	var out AgentOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	if out.Status == "" {
		return nil, fmt.Errorf("missing status")
	}
	return &out, nil
}

// parseLenient decodes the raw text as a generic tree and pulls recognized
// fields by name with type coercion. It tolerates missing optional fields,
// unknown keys and mildly wrong types, but still rejects placeholders.
func parseLenient(raw string) (*AgentOutput, error) {
	if containsPlaceholder(raw) {
		return nil, fmt.Errorf("placeholder token detected")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	status, ok := asString(m["status"])
	if !ok || status == "" {
		return nil, fmt.Errorf("missing status")
	}

	out := &AgentOutput{Status: status}
	if v, ok := asString(m["documentType"]); ok {
		out.DocumentType = v
	}
	if v, ok := m["extraction"].(map[string]any); ok {
		out.Extraction = v
	}
	if v, ok := asString(m["rawText"]); ok {
		out.RawText = v
	}
	if v, ok := asString(m["description"]); ok {
		out.Description = v
	}
	if v, ok := asStringList(m["keywords"]); ok {
		out.Keywords = v
	}
	if v, ok := asFloat(m["confidence"]); ok {
		out.Confidence = &v
	}
	if v, ok := asBool(m["validationPassed"]); ok {
		out.ValidationPassed = &v
	}
	if v, ok := asFloat(m["correctionsApplied"]); ok {
		out.CorrectionsApplied = int(v)
	}
	if v, ok := asString(m["contactId"]); ok {
		out.ContactID = v
	}
	if v, ok := asBool(m["contactCreated"]); ok {
		out.ContactCreated = v
	}
	if v, ok := asStringList(m["issues"]); ok {
		out.Issues = v
	}
	if v, ok := asString(m["reason"]); ok {
		out.Reason = v
	}
	return out, nil
}

// Coercion helpers for the lenient parse.

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b, true
		}
	}
	return false, false
}

// asStringList accepts a JSON array of scalars or a single comma-separated
// string (a common model mistake for keyword lists).
func asStringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := asString(e); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	}
	return nil, false
}
