// Package validate holds the deterministic financial-field checks backing
// the validate_extraction tool: IBAN mod-97, Belgian structured
// communications (OGM), and VAT number formats.
package validate

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

var (
	reIBAN      = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{11,30}$`)
	reOGMDigits = regexp.MustCompile(`^\d{12}$`)
	reVAT       = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]{2,12}$`)
	reStrip     = regexp.MustCompile(`[\s.\-/+]`)
)

var mod97 = big.NewInt(97)

// NormalizeIBAN uppercases and strips separators.
func NormalizeIBAN(s string) string {
	return reStrip.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
}

// IBAN reports whether s is a structurally valid IBAN (ISO 13616 mod-97).
func IBAN(s string) bool {
	iban := NormalizeIBAN(s)
	if !reIBAN.MatchString(iban) {
		return false
	}
	// Move the country code and check digits to the end, then map letters
	// to numbers (A=10 .. Z=35) and take mod 97.
	rearranged := iban[4:] + iban[:4]
	var sb strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			sb.WriteString(strconv.Itoa(int(r-'A') + 10))
		} else {
			sb.WriteRune(r)
		}
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, mod97).Int64() == 1
}

// NormalizeOGM strips the +++ / *** wrapping and separators from a Belgian
// structured communication, returning the bare 12 digits.
func NormalizeOGM(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "+*")
	return reStrip.ReplaceAllString(s, "")
}

// OGM reports whether s is a valid Belgian structured communication
// (gestructureerde mededeling): 12 digits where the last two are the first
// ten mod 97, with 97 substituted for 0.
func OGM(s string) bool {
	digits := NormalizeOGM(s)
	if !reOGMDigits.MatchString(digits) {
		return false
	}
	body, err := strconv.ParseInt(digits[:10], 10, 64)
	if err != nil {
		return false
	}
	check, err := strconv.ParseInt(digits[10:], 10, 64)
	if err != nil {
		return false
	}
	want := body % 97
	if want == 0 {
		want = 97
	}
	return check == want
}

// FormatOGM renders 12 digits in the conventional +++xxx/xxxx/xxxxx+++ form.
func FormatOGM(digits string) string {
	d := NormalizeOGM(digits)
	if len(d) != 12 {
		return digits
	}
	return "+++" + d[:3] + "/" + d[3:7] + "/" + d[7:] + "+++"
}

// NormalizeVAT uppercases and strips separators from a VAT number.
func NormalizeVAT(s string) string {
	return reStrip.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
}

// VAT reports whether s looks like a valid EU VAT number. Belgian numbers
// get a full check-digit verification; other prefixes get a format check
// only.
func VAT(s string) bool {
	vat := NormalizeVAT(s)
	if !reVAT.MatchString(vat) {
		return false
	}
	if strings.HasPrefix(vat, "BE") {
		return belgianVAT(vat[2:])
	}
	return true
}

// belgianVAT verifies the 10-digit enterprise number: the last two digits
// are 97 minus the first eight mod 97.
func belgianVAT(digits string) bool {
	if len(digits) != 10 {
		return false
	}
	if digits[0] != '0' && digits[0] != '1' {
		return false
	}
	body, err := strconv.ParseInt(digits[:8], 10, 64)
	if err != nil {
		return false
	}
	check, err := strconv.ParseInt(digits[8:], 10, 64)
	if err != nil {
		return false
	}
	return check == 97-(body%97)
}
