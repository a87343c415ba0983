// Package contacts holds the deterministic contact-linking rule table. The
// policy shapes the linking instructions given to the agent and re-derives a
// verdict during trace-based fallback; it never calls a network service.
package contacts

import (
	"fmt"
	"strings"
)

// DecisionType is the linking verdict.
type DecisionType string

const (
	AutoLink DecisionType = "AUTO_LINK"
	Suggest  DecisionType = "SUGGEST"
	None     DecisionType = "NONE"
)

// Evidence bundles the corroborating signals a verdict is based on.
type Evidence struct {
	VATValid       bool    `json:"vatValid"`
	VATMatch       bool    `json:"vatMatch"`
	CBEExists      bool    `json:"cbeExists"`
	IBANMatch      bool    `json:"ibanMatch"`
	NameSimilarity float64 `json:"nameSimilarity"`
	AddressMatch   bool    `json:"addressMatch"`
	AmbiguityCount int     `json:"ambiguityCount"`
}

// LinkDecision is the verdict on whether a resolved counterparty may be
// associated with an existing contact record.
type LinkDecision struct {
	Type       DecisionType `json:"decision"`
	ContactID  string       `json:"contactId,omitempty"`
	Reason     string       `json:"reason"`
	Confidence float64      `json:"confidence,omitempty"` // meaningful for SUGGEST only
	Evidence   *Evidence    `json:"evidence,omitempty"`
}

// PolicyVariant selects one of the two rule tables. Never both.
type PolicyVariant string

const (
	// VATOnly auto-links only on a valid, unambiguous VAT match.
	VATOnly PolicyVariant = "vat_only"
	// VATOrStrongSignals additionally auto-links on multi-signal corroboration.
	VATOrStrongSignals PolicyVariant = "vat_or_signals"
)

// Thresholds for the strong-signals path.
const (
	strongNameSimilarity = 0.93
)

// ParseVariant normalizes a configured variant string, defaulting to the
// conservative VAT-only table.
func ParseVariant(s string) PolicyVariant {
	if strings.TrimSpace(strings.ToLower(s)) == string(VATOrStrongSignals) {
		return VATOrStrongSignals
	}
	return VATOnly
}

// Policy is a stateless rule table; safe to share across runs.
type Policy struct {
	variant PolicyVariant
}

func NewPolicy(variant PolicyVariant) *Policy {
	return &Policy{variant: variant}
}

func (p *Policy) Variant() PolicyVariant {
	return p.variant
}

// Decide returns the verdict for a candidate contact given the evidence.
// candidateID may be empty when no contact was resolved at all.
func (p *Policy) Decide(ev Evidence, candidateID string) LinkDecision {
	if candidateID == "" {
		return LinkDecision{Type: None, Reason: "no candidate contact resolved", Evidence: &ev}
	}

	if ev.VATValid && ev.VATMatch && ev.AmbiguityCount == 1 {
		return LinkDecision{
			Type:      AutoLink,
			ContactID: candidateID,
			Reason:    "valid VAT number matches exactly one contact",
			Evidence:  &ev,
		}
	}

	if p.variant == VATOrStrongSignals &&
		ev.NameSimilarity >= strongNameSimilarity &&
		ev.IBANMatch && ev.AddressMatch && ev.AmbiguityCount == 1 {
		return LinkDecision{
			Type:      AutoLink,
			ContactID: candidateID,
			Reason: fmt.Sprintf("strong corroboration: name similarity %.2f, IBAN and address matched, single candidate",
				ev.NameSimilarity),
			Evidence: &ev,
		}
	}

	if ev.AmbiguityCount > 1 {
		return LinkDecision{
			Type:       Suggest,
			ContactID:  candidateID,
			Reason:     fmt.Sprintf("%d candidate contacts are plausible", ev.AmbiguityCount),
			Confidence: ev.NameSimilarity,
			Evidence:   &ev,
		}
	}
	if ev.NameSimilarity > 0 || ev.IBANMatch || ev.AddressMatch {
		return LinkDecision{
			Type:       Suggest,
			ContactID:  candidateID,
			Reason:     "partial evidence only; auto-linking requires an exact VAT match",
			Confidence: ev.NameSimilarity,
			Evidence:   &ev,
		}
	}
	return LinkDecision{Type: None, Reason: "no corroborating evidence for candidate", Evidence: &ev}
}

// PromptRules renders the linking policy as instructions for the agent's
// system prompt.
func (p *Policy) PromptRules() string {
	rules := []string{
		"Contact linking policy:",
		"- AUTO_LINK a contact only when the extracted VAT number is valid and matches exactly one existing contact.",
		"- Never AUTO_LINK on name similarity alone.",
		"- When a candidate exists but the match is not exact, return it as a suggestion (suggestedContactId), not as contactId.",
		"- When no candidate exists, leave contact fields unset; optionally create a contact via create_contact when the document clearly identifies a new counterparty.",
	}
	if p.variant == VATOrStrongSignals {
		rules = append(rules,
			"- Exception: AUTO_LINK without a VAT match is allowed only when name similarity is at least 0.93 AND the IBAN matched AND the address matched AND exactly one candidate exists.")
	}
	return strings.Join(rules, "\n")
}
