package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIBAN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"BE68539007547034", true},
		{"BE68 5390 0754 7034", true},
		{"be68 5390 0754 7034", true},
		{"GB82WEST12345698765432", true},
		{"DE89370400440532013000", true},
		{"BE68539007547035", false}, // check digit off by one
		{"BE685390075470", false},   // too short
		{"", false},
		{"not an iban", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IBAN(tt.in), "IBAN(%q)", tt.in)
	}
}

func TestOGM(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"+++000/0000/00101+++", true},
		{"000000000101", true},
		{"+++123/4567/89002+++", true},
		{"123456789002", true},
		{"000000000000", false}, // zero check maps to 97
		{"123456789003", false},
		{"12345678900", false}, // 11 digits
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OGM(tt.in), "OGM(%q)", tt.in)
	}
}

func TestFormatOGM(t *testing.T) {
	assert.Equal(t, "+++123/4567/89002+++", FormatOGM("123456789002"))
	assert.Equal(t, "+++123/4567/89002+++", FormatOGM("+++123/4567/89002+++"))
	assert.Equal(t, "12345", FormatOGM("12345")) // not 12 digits, untouched
}

func TestVAT(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"BE0411905847", true},
		{"BE 0411.905.847", true},
		{"BE0411905848", false}, // wrong check digits
		{"BE041190584", false},  // 9 digits
		{"BE9411905847", false}, // must start 0 or 1
		{"NL123456789B01", true},
		{"FR12345678901", true},
		{"X1", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VAT(tt.in), "VAT(%q)", tt.in)
	}
}
