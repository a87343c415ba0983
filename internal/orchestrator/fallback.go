package orchestrator

import (
	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/trace"
)

// reconstructFromTrace recovers a needs_review output from the most recent
// extraction-tool step with a non-nil output. Returns nil when the trace
// holds no usable extraction. The second return is the contact id recovered
// from trace evidence, empty when none qualifies.
func reconstructFromTrace(steps []trace.Step) (*AgentOutput, string) {
	var (
		docType    constants.DocumentType
		extraction map[string]any
	)
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		t, ok := constants.ExtractionToolTypes[s.Tool]
		if !ok || s.Output == nil {
			continue
		}
		if m, ok := s.Output.(map[string]any); ok {
			docType = t
			extraction = m
			break
		}
	}
	if extraction == nil {
		return nil, ""
	}

	out := &AgentOutput{
		Status:       string(constants.StatusNeedsReview),
		DocumentType: string(docType),
		Extraction:   extraction,
		Reason:       "Reconstructed from execution trace after unparsable agent output",
		Issues:       []string{"agent output was unparsable; extraction recovered from trace"},
	}
	if s, ok := extraction["extractedText"].(string); ok {
		out.RawText = s
	}

	contactID := recoverContactID(steps)
	out.ContactID = contactID
	return out, contactID
}

// recoverContactID scans the trace for confirmed contact identity evidence,
// in strict priority order:
//
//  1. an explicit linkedContactId/contactId field on a store_extraction
//     step — never suggestedContactId, a suggestion is not a confirmed
//     identity decision;
//  2. a lookup_contact step whose output reports found=true with an EXACT
//     match.
func recoverContactID(steps []trace.Step) string {
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Tool != constants.ToolStoreExtraction {
			continue
		}
		for _, snap := range []map[string]any{asMap(s.Output), s.Input} {
			if snap == nil {
				continue
			}
			if id, ok := snap["linkedContactId"].(string); ok && id != "" {
				return id
			}
			if id, ok := snap["contactId"].(string); ok && id != "" {
				return id
			}
		}
	}
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Tool != constants.ToolLookupContact {
			continue
		}
		out := asMap(s.Output)
		if out == nil {
			continue
		}
		found, _ := out["found"].(bool)
		matchType, _ := out["matchType"].(string)
		if !found || matchType != "EXACT" {
			continue
		}
		if id, ok := out["contactId"].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// mergeOutputs combines a parsed-but-incomplete result with a trace
// reconstruction: the fallback supplies the structural skeleton (document
// type, extraction, raw-text fallback), the parsed result's non-null fields
// win, and issue lists are concatenated and de-duplicated.
func mergeOutputs(parsed, fallback *AgentOutput) *AgentOutput {
	merged := *fallback

	merged.Status = parsed.Status
	if parsed.DocumentType != "" {
		merged.DocumentType = parsed.DocumentType
	}
	if parsed.Extraction != nil {
		merged.Extraction = parsed.Extraction
	}
	if parsed.RawText != "" {
		merged.RawText = parsed.RawText
	}
	if parsed.Description != "" {
		merged.Description = parsed.Description
	}
	if len(parsed.Keywords) > 0 {
		merged.Keywords = parsed.Keywords
	}
	if parsed.Confidence != nil {
		merged.Confidence = parsed.Confidence
	}
	if parsed.ValidationPassed != nil {
		merged.ValidationPassed = parsed.ValidationPassed
	}
	if parsed.CorrectionsApplied != 0 {
		merged.CorrectionsApplied = parsed.CorrectionsApplied
	}
	if parsed.ContactID != "" {
		merged.ContactID = parsed.ContactID
		merged.ContactCreated = parsed.ContactCreated
	}
	if parsed.Reason != "" {
		merged.Reason = parsed.Reason
	}

	merged.Issues = dedupeStrings(append(append([]string{}, fallback.Issues...), parsed.Issues...))
	return &merged
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
