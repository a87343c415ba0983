package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// systemPrompt renders the fixed rules, output schema and contact-linking
// policy for the primary agent session.
func (o *Orchestrator) systemPrompt() string {
	parts := []string{
		"You are a financial document processing agent for an accounting platform.",
		"Process exactly one document per run: fetch its image, classify it, extract its fields with the matching extraction tool, validate the extracted payment fields, enrich with a description and keywords, resolve the counterparty contact, and persist the result with store_extraction.",
		"Always call store_extraction before finishing; a run without a successful store_extraction call loses its data.",
		"Use get_parsed_extraction first: if the document arrived pre-parsed, skip image extraction and continue from the provided payload.",
		"When you are done, answer with ONLY one JSON object matching the schema below. No prose around it; a markdown ```json fence is acceptable.",
		"Set status to \"success\" only when documentType and extraction are filled and validation passed; use \"needs_review\" when data is incomplete or uncertain; use \"failed\" only when nothing could be extracted.",
		"Never output ellipsis tokens (\"...\" or \"…\") anywhere; omit unknown fields instead.",
		"Report every validation problem in issues and count your corrections in correctionsApplied.",
	}
	parts = append(parts, o.policy.PromptRules())
	parts = append(parts, "Output JSON Schema:\n"+mustJSON(BuildOutputSchema()))
	return strings.Join(parts, "\n\n")
}

// taskPrompt renders the per-run task: identifiers, tenant context, paging
// hints.
func (o *Orchestrator) taskPrompt(req ProcessRequest, runID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Process document %s for tenant %s (run %s).\n", req.DocumentID, req.TenantID, runID)
	if req.CompanyName != "" {
		fmt.Fprintf(&b, "Tenant company name: %s.\n", req.CompanyName)
	}
	if req.TenantVAT != "" {
		fmt.Fprintf(&b, "Tenant VAT number: %s (the document counterparty is the OTHER party, never the tenant itself).\n", req.TenantVAT)
	}
	if req.MaxPages > 0 {
		fmt.Fprintf(&b, "Consider at most the first %d pages.\n", req.MaxPages)
	}
	if req.DPI > 0 {
		fmt.Fprintf(&b, "Request document images at %d DPI.\n", req.DPI)
	}
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
