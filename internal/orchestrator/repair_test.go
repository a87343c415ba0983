package orchestrator

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildRepairPromptTruncatesAtRuneBoundary(t *testing.T) {
	// Put a two-byte rune straddling the truncation limit so a byte-index
	// cut would produce invalid UTF-8.
	raw := strings.Repeat("a", repairRawLimit-1) + "é" + strings.Repeat("b", 50)

	prompt := buildRepairPrompt(raw)
	assert.True(t, utf8.ValidString(prompt))
	assert.NotContains(t, prompt, "�")
	assert.True(t, strings.HasSuffix(prompt, strings.Repeat("a", 20)),
		"the straddling rune is dropped, not split")
}

func TestBuildRepairPromptShortInputUnchanged(t *testing.T) {
	prompt := buildRepairPrompt(`{"status":"succ`)
	assert.Contains(t, prompt, "Schema:")
	assert.Contains(t, prompt, `{"status":"succ`)
}
