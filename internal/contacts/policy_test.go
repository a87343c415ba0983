package contacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVATOnlyAutoLinksOnlyOnExactVATMatch(t *testing.T) {
	p := NewPolicy(VATOnly)

	tests := []struct {
		name string
		ev   Evidence
		want DecisionType
	}{
		{
			name: "valid VAT, single match",
			ev:   Evidence{VATValid: true, VATMatch: true, AmbiguityCount: 1},
			want: AutoLink,
		},
		{
			name: "valid VAT but ambiguous",
			ev:   Evidence{VATValid: true, VATMatch: true, AmbiguityCount: 2},
			want: Suggest,
		},
		{
			name: "invalid VAT",
			ev:   Evidence{VATValid: false, VATMatch: true, AmbiguityCount: 1},
			want: None,
		},
		{
			name: "no VAT match, strong signals must not auto-link under vat_only",
			ev:   Evidence{NameSimilarity: 0.99, IBANMatch: true, AddressMatch: true, AmbiguityCount: 1},
			want: Suggest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Decide(tt.ev, "c-123")
			assert.Equal(t, tt.want, got.Type)
			if got.Type == AutoLink {
				assert.Equal(t, "c-123", got.ContactID)
			}
		})
	}
}

func TestStrongSignalsVariant(t *testing.T) {
	p := NewPolicy(VATOrStrongSignals)

	auto := p.Decide(Evidence{NameSimilarity: 0.95, IBANMatch: true, AddressMatch: true, AmbiguityCount: 1}, "c-9")
	assert.Equal(t, AutoLink, auto.Type)

	tests := []struct {
		name string
		ev   Evidence
	}{
		{"similarity below threshold", Evidence{NameSimilarity: 0.92, IBANMatch: true, AddressMatch: true, AmbiguityCount: 1}},
		{"no IBAN match", Evidence{NameSimilarity: 0.95, AddressMatch: true, AmbiguityCount: 1}},
		{"no address match", Evidence{NameSimilarity: 0.95, IBANMatch: true, AmbiguityCount: 1}},
		{"ambiguous", Evidence{NameSimilarity: 0.95, IBANMatch: true, AddressMatch: true, AmbiguityCount: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Decide(tt.ev, "c-9")
			assert.NotEqual(t, AutoLink, got.Type, "falling short of both paths must not auto-link")
		})
	}
}

func TestNoCandidateMeansNone(t *testing.T) {
	p := NewPolicy(VATOnly)
	got := p.Decide(Evidence{VATValid: true, VATMatch: true, AmbiguityCount: 1}, "")
	assert.Equal(t, None, got.Type)
	assert.Empty(t, got.ContactID)
}

func TestSuggestCarriesConfidence(t *testing.T) {
	p := NewPolicy(VATOnly)
	got := p.Decide(Evidence{NameSimilarity: 0.7, AmbiguityCount: 1}, "c-1")
	assert.Equal(t, Suggest, got.Type)
	assert.InDelta(t, 0.7, got.Confidence, 1e-9)
}

func TestParseVariant(t *testing.T) {
	assert.Equal(t, VATOnly, ParseVariant(""))
	assert.Equal(t, VATOnly, ParseVariant("vat_only"))
	assert.Equal(t, VATOrStrongSignals, ParseVariant("VAT_OR_SIGNALS"))
}

func TestPromptRulesMentionExceptionOnlyForStrongVariant(t *testing.T) {
	assert.NotContains(t, NewPolicy(VATOnly).PromptRules(), "Exception")
	assert.Contains(t, NewPolicy(VATOrStrongSignals).PromptRules(), "0.93")
}
