package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/contacts"
	"github.com/fintrack-io/docpipe/internal/trace"
)

// fallbackLinkNote is the fixed evidence note attached when a contact id was
// recovered from trace evidence rather than from the agent's own decision.
const fallbackLinkNote = "Recovered from trace: VAT lookup exact match (fallback)"

// storeSucceeded reports whether the agent's own store_extraction call
// happened and succeeded.
func storeSucceeded(steps []trace.Step) bool {
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Tool != constants.ToolStoreExtraction || s.Action != "tool_call" {
			continue
		}
		if s.Note != "" {
			continue
		}
		if out := asMap(s.Output); out != nil {
			if ok, _ := out["success"].(bool); ok {
				return true
			}
		}
	}
	return false
}

// ensurePersisted is the persistence guard: after output resolution and
// before classification it verifies the extraction was durably stored, and
// replays a synthesized store_extraction call when the agent never made one
// (or made one that failed). A run must never claim extracted data that was
// not actually persisted.
func (o *Orchestrator) ensurePersisted(ctx context.Context, req ProcessRequest, runID string, res resolvedOutput, tr *trace.Collector) error {
	steps := tr.Snapshot()
	if storeSucceeded(steps) {
		return nil
	}
	out := res.out
	if out.DocumentType == "" || out.Extraction == nil {
		// Nothing persistable was extracted; classification decides the rest.
		return nil
	}

	store := StoreExtractionRequest{
		DocumentID:     req.DocumentID,
		TenantID:       req.TenantID,
		RunID:          runID,
		DocumentType:   constants.DocumentType(out.DocumentType),
		Extraction:     out.Extraction,
		Description:    out.Description,
		Keywords:       out.Keywords,
		Confidence:     out.EffectiveConfidence(),
		RawText:        out.EffectiveRawText(),
		ContactID:      out.ContactID,
		ContactCreated: out.ContactCreated,
	}
	if store.Keywords == nil {
		store.Keywords = []string{}
	}
	if res.fallbackContactID != "" {
		// Fallback recovery only trusts an exact VAT lookup, so the evidence
		// is a single unambiguous VAT match; the policy still gets the final
		// word on whether that links.
		decision := o.policy.Decide(contacts.Evidence{
			VATValid:       true,
			VATMatch:       true,
			AmbiguityCount: 1,
		}, res.fallbackContactID)
		if decision.Type == contacts.AutoLink {
			decision.Reason = fallbackLinkNote
			decision.Confidence = 1.0
			store.LinkDecision = &decision
		}
	}

	tr.Record(trace.Entry{
		Action: "persistence_guard",
		Note:   "agent did not persist extraction; synthesizing store_extraction call",
		Input: map[string]any{
			"documentType":    string(store.DocumentType),
			"linkedContactId": store.ContactID,
		},
	})
	o.logger.Warn("orchestrator.persistence_guard.fired",
		"run_id", runID, "document_type", store.DocumentType,
		"fallback_contact", res.fallbackContactID != "")

	start := time.Now()
	ok, err := o.collab.Store.StoreExtraction(ctx, store)
	entry := trace.Entry{
		Action:   "persistence_guard",
		Tool:     constants.ToolStoreExtraction,
		Duration: time.Since(start),
		Output:   map[string]any{"success": ok},
	}
	if err != nil {
		entry.Note = err.Error()
	}
	tr.Record(entry)

	if err != nil {
		return fmt.Errorf("synthesized store_extraction: %w", err)
	}
	if !ok {
		return fmt.Errorf("synthesized store_extraction reported failure")
	}
	return nil
}
