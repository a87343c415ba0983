package gemini

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/fintrack-io/docpipe/internal/tools"
)

// toGenaiSchema converts a registry parameter schema to the genai shape.
func toGenaiSchema(s tools.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Properties)),
		Required:   s.Required,
	}
	for name, p := range s.Properties {
		prop := &genai.Schema{
			Type:        toGenaiType(p.Type),
			Description: p.Description,
		}
		for _, e := range p.Enum {
			prop.Enum = append(prop.Enum, fmt.Sprintf("%v", e))
		}
		if p.Items != nil {
			prop.Items = &genai.Schema{Type: toGenaiType(p.Items.Type)}
		}
		out.Properties[name] = prop
	}
	return out
}

func toGenaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
