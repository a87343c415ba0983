package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack-io/docpipe/internal/trace"
)

var (
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrToolNotFound          = errors.New("tool not found")
)

// Registry holds the tools available to one run. Unlike a global registry it
// is not shared across runs; registration order is preserved because it is
// also the declaration order sent to the model.
type Registry struct {
	order  []string
	tools  map[string]*Tool
	tracer *trace.Collector
	logger *slog.Logger
}

// NewRegistry creates an empty per-run registry writing to the run's trace.
func NewRegistry(tracer *trace.Collector, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		tracer: tracer,
		logger: logger,
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	return nil
}

// MustRegister registers a tool and panics on error. Use for the fixed
// per-run toolset where a duplicate name is a programming error.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Declarations returns all tools in registration order, for building the
// model-facing declaration list.
func (r *Registry) Declarations() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Invoke executes a tool by name and records the call as a trace step with
// its duration, argument snapshot and result snapshot. Handler errors are
// recorded in the step note and returned to the caller; for non-critical
// tools the error is swallowed and a failure payload is returned instead so
// the model can continue.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	tool, ok := r.tools[name]
	if !ok {
		r.tracer.Record(trace.Entry{
			Action: "tool_call",
			Tool:   name,
			Input:  args,
			Note:   "unknown tool",
		})
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	start := time.Now()
	out, err := tool.Handler(ctx, args)
	elapsed := time.Since(start)

	entry := trace.Entry{
		Action:   "tool_call",
		Tool:     name,
		Duration: elapsed,
		Input:    args,
		Output:   out,
	}
	if err != nil {
		entry.Note = err.Error()
	}
	r.tracer.Record(entry)

	if err != nil {
		r.logger.Warn("tools.invoke.failed",
			"tool", name, "error", err, "elapsed_ms", elapsed.Milliseconds())
		if tool.NonCritical {
			return map[string]any{"success": false, "error": err.Error()}, nil
		}
		return nil, err
	}

	r.logger.Info("tools.invoke.ok", "tool", name, "elapsed_ms", elapsed.Milliseconds())
	return out, nil
}
