package orchestrator

import (
	"fmt"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/trace"
)

// classify maps a resolved, persisted output to its terminal result. Pure
// function of the output and the trace snapshot.
func classify(out *AgentOutput, steps []trace.Step) Result {
	switch constants.OutputStatus(out.Status) {
	case constants.StatusSuccess:
		if !out.Complete() {
			// Never emit a lossy success.
			return Failed{
				Reason: "Missing documentType or extraction in orchestrator output",
				Stage:  StageOrchestrator,
				Trace:  steps,
			}
		}
		return Success{
			DocumentType:       constants.DocumentType(out.DocumentType),
			Extraction:         out.Extraction,
			Confidence:         out.EffectiveConfidence(),
			RawText:            out.EffectiveRawText(),
			Description:        out.Description,
			Keywords:           out.Keywords,
			ValidationPassed:   out.EffectiveValidationPassed(),
			CorrectionsApplied: out.CorrectionsApplied,
			ExampleUsedID:      out.exampleUsedID(),
			ContactID:          out.ContactID,
			ContactCreated:     out.ContactCreated,
			Trace:              steps,
		}

	case constants.StatusNeedsReview:
		reason := out.Reason
		if reason == "" {
			reason = "Needs review"
		}
		return NeedsReview{
			DocumentType: constants.DocumentType(out.DocumentType),
			Extraction:   out.Extraction,
			Reason:       reason,
			Issues:       out.Issues,
			Trace:        steps,
		}

	case constants.StatusFailed:
		reason := out.Reason
		if reason == "" {
			reason = "Agent reported failure"
		}
		return Failed{Reason: reason, Stage: StageOrchestrator, Trace: steps}

	default:
		return Failed{
			Reason: fmt.Sprintf("Unknown orchestrator status: %s", out.Status),
			Stage:  StageOrchestrator,
			Trace:  steps,
		}
	}
}

// appendNonCriticalIssues surfaces failed non-critical tool calls (chunk
// storage, example indexing, status updates) as issues on the output.
func appendNonCriticalIssues(out *AgentOutput, steps []trace.Step) {
	for _, s := range steps {
		if s.Note == "" {
			continue
		}
		if _, ok := constants.NonCriticalTools[s.Tool]; !ok {
			continue
		}
		out.Issues = append(out.Issues, fmt.Sprintf("%s failed: %s", s.Tool, s.Note))
	}
	out.Issues = dedupeStrings(out.Issues)
}
