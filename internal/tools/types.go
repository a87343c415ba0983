// Package tools assembles the bounded set of callable tools handed to the
// agent for a single run. A Registry is built fresh per run, scoped to one
// tenant/document context, and records every invocation in the run's trace.
package tools

import (
	"context"
	"fmt"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// Schema defines the JSON schema for tool arguments.
type Schema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// Handler is the signature for tool execution.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is one callable capability exposed to the agent.
type Tool struct {
	// Name is the unique identifier for the tool. It is also the tool label
	// recorded in trace steps.
	Name string

	// Description explains what the tool does, for the model.
	Description string

	// Parameters is the argument schema sent to the model.
	Parameters Schema

	// Handler executes the tool.
	Handler Handler

	// NonCritical marks tools whose failure must not fail the run; a failed
	// call is reported back to the model and surfaced later as an issue.
	NonCritical bool
}

// Validate checks the tool definition is usable.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s has no handler", t.Name)
	}
	return nil
}
