package orchestrator

import (
	"context"

	"github.com/fintrack-io/docpipe/internal/trace"
)

// parserStage is one parse attempt in the cascade. The explicit ordered list
// keeps the escalation order auditable and each stage independently
// testable.
type parserStage struct {
	name string
	fn   func(string) (*AgentOutput, error)
}

var parserStages = []parserStage{
	{"parse_strict", parseStrict},
	{"parse_lenient", parseLenient},
}

// resolvedOutput is what the cascade hands to the persistence guard and
// classifier.
type resolvedOutput struct {
	out *AgentOutput

	// usedFallback marks that trace reconstruction contributed the output
	// (alone or merged).
	usedFallback bool

	// fallbackContactID is the contact id recovered from trace evidence,
	// set only when the fallback stage ran and found confirmed identity.
	fallbackContactID string
}

// runParsers tries each parse stage in order on the normalized text,
// recording every attempt as a trace step. Returns nil when all stages fail.
func (o *Orchestrator) runParsers(norm string, tr *trace.Collector) *AgentOutput {
	for _, stage := range parserStages {
		out, err := stage.fn(norm)
		entry := trace.Entry{Action: stage.name}
		if err != nil {
			entry.Note = err.Error()
			tr.Record(entry)
			o.logger.Info("orchestrator.parse.stage_failed", "stage", stage.name, "error", err)
			continue
		}
		entry.Output = map[string]any{"status": out.Status, "complete": out.Complete()}
		tr.Record(entry)
		o.logger.Info("orchestrator.parse.stage_ok", "stage", stage.name, "status", out.Status)
		return out
	}
	return nil
}

// resolveOutput turns the agent's raw text into a validated AgentOutput,
// escalating through strict parse, lenient parse, the repair sub-agent and
// trace-based reconstruction, merging partial results where possible. A zero
// resolvedOutput (out == nil) means every stage failed.
func (o *Orchestrator) resolveOutput(ctx context.Context, raw string, tr *trace.Collector) resolvedOutput {
	parsed := o.runParsers(normalizeRawOutput(raw), tr)

	// Repair is warranted only when parsing failed outright (malformed or
	// placeholder-ridden text); an incomplete but valid output goes to the
	// merge path instead.
	if parsed == nil {
		if repaired, ok := o.repairOutput(ctx, raw, tr); ok {
			parsed = o.runParsers(normalizeRawOutput(repaired), tr)
		}
	}

	if parsed != nil && parsed.Complete() {
		return resolvedOutput{out: parsed}
	}

	fallback, contactID := reconstructFromTrace(tr.Snapshot())
	if fallback == nil {
		tr.Record(trace.Entry{Action: "trace_fallback", Note: "no usable extraction step in trace"})
		// A parsed-but-incomplete output is still worth classifying.
		return resolvedOutput{out: parsed}
	}
	tr.Record(trace.Entry{
		Action: "trace_fallback",
		Output: map[string]any{"documentType": fallback.DocumentType, "contactId": contactID},
	})
	o.logger.Info("orchestrator.fallback.reconstructed",
		"document_type", fallback.DocumentType, "contact_recovered", contactID != "")

	if parsed == nil {
		return resolvedOutput{out: fallback, usedFallback: true, fallbackContactID: contactID}
	}

	merged := mergeOutputs(parsed, fallback)
	tr.Record(trace.Entry{Action: "merge_outputs"})
	return resolvedOutput{out: merged, usedFallback: true, fallbackContactID: contactID}
}
