// Package trace keeps the per-run audit log of everything the agent did.
// The collector is the only mutable state shared between the primary agent
// session and the repair sub-session, so all writes go through one mutex.
package trace

import (
	"sync"
	"time"
)

// Step is one trace entry. Steps are append-only; nothing mutates a Step
// after Record returns.
type Step struct {
	Index    int    // 1-based, strictly increasing within a run
	Action   string // e.g. "tool_call", "agent_session", "persistence_guard"
	Tool     string // tool name, empty for non-tool steps
	Duration time.Duration
	Input    map[string]any // argument snapshot, may be nil
	Output   any            // result snapshot, may be nil
	Note     string         // free text, e.g. an error message
}

// Entry is the caller-supplied part of a Step. The collector assigns Index.
type Entry struct {
	Action   string
	Tool     string
	Duration time.Duration
	Input    map[string]any
	Output   any
	Note     string
}

// Collector is an append-only, in-memory step log.
type Collector struct {
	mu    sync.Mutex
	steps []Step
}

func NewCollector() *Collector {
	return &Collector{steps: make([]Step, 0, 32)}
}

// Record appends a step and returns its assigned index.
func (c *Collector) Record(e Entry) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	step := Step{
		Index:    len(c.steps) + 1,
		Action:   e.Action,
		Tool:     e.Tool,
		Duration: e.Duration,
		Input:    e.Input,
		Output:   e.Output,
		Note:     e.Note,
	}
	c.steps = append(c.steps, step)
	return step.Index
}

// Len returns the number of recorded steps.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.steps)
}

// Snapshot returns an ordered copy of all steps recorded so far. The copy is
// safe to hand to downstream stages; appends after the call are not visible
// in it.
func (c *Collector) Snapshot() []Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}
