package llm

import (
	"context"
	"time"

	"github.com/fintrack-io/docpipe/internal/tools"
)

// SessionRequest describes one bounded agent session.
type SessionRequest struct {
	SystemPrompt string
	TaskPrompt   string

	// Registry is the capability surface for the session. Nil means a
	// tool-free session (used by the repair sub-agent).
	Registry *tools.Registry

	// MaxIterations is the tool-call ceiling. Ignored when Registry is nil.
	MaxIterations int
}

// SessionResult is the agent's final raw textual output plus timing.
type SessionResult struct {
	Text       string
	Iterations int
	Elapsed    time.Duration
}

// Session is one agent conversation. Run may be called once; Close must be
// called on every exit path regardless of Run's outcome.
type Session interface {
	Run(ctx context.Context, req SessionRequest) (SessionResult, error)
	Close() error
}

// SessionFactory opens fresh sessions. The orchestrator depends on this
// seam, not on any concrete model transport.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}
