package common

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10), "short strings pass through")
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "", Truncate("abc", 0))

	// "é" is two bytes; a cut landing on its continuation byte backs up.
	s := "ab" + "é"
	got := Truncate(s, 3)
	assert.Equal(t, "ab", got)
	assert.True(t, utf8.ValidString(got))

	// A long payload ending in multibyte runes stays valid UTF-8 at any cut.
	long := strings.Repeat("€", 100)
	for max := 1; max < 10; max++ {
		assert.True(t, utf8.ValidString(Truncate(long, max)), "max=%d", max)
	}
}
