package common

import "unicode/utf8"

// Truncate cuts s to at most max bytes without splitting a multibyte rune,
// backing up to the previous rune boundary when the cut would land inside
// one.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
