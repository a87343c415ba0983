package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/fintrack-io/docpipe/internal/tools"
)

func TestToGenaiSchema(t *testing.T) {
	in := tools.Schema{
		Required: []string{"documentType"},
		Properties: map[string]tools.Property{
			"documentType": {Type: "string", Description: "canonical type", Enum: []any{"INVOICE", "RECEIPT"}},
			"maxPages":     {Type: "integer"},
			"keywords":     {Type: "array", Items: &tools.PropertyItems{Type: "string"}},
		},
	}

	out := toGenaiSchema(in)
	require.NotNil(t, out)
	assert.Equal(t, genai.TypeObject, out.Type)
	assert.Equal(t, []string{"documentType"}, out.Required)

	dt := out.Properties["documentType"]
	require.NotNil(t, dt)
	assert.Equal(t, genai.TypeString, dt.Type)
	assert.Equal(t, []string{"INVOICE", "RECEIPT"}, dt.Enum)

	assert.Equal(t, genai.TypeInteger, out.Properties["maxPages"].Type)

	kw := out.Properties["keywords"]
	require.NotNil(t, kw.Items)
	assert.Equal(t, genai.TypeArray, kw.Type)
	assert.Equal(t, genai.TypeString, kw.Items.Type)
}

func TestToGenaiTypeFallsBackToString(t *testing.T) {
	assert.Equal(t, genai.TypeString, toGenaiType("decimal"))
}
