package orchestrator

import (
	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/trace"
)

// Stage labels for Failed results.
const (
	StageOrchestrator    = "orchestrator"
	StageStoreExtraction = "store_extraction"
)

// Result is the closed set of terminal run outcomes. Exactly one variant is
// returned per run; consumers branch with a type switch. The unexported
// method keeps the set closed so a new variant cannot appear without every
// switch being revisited.
type Result interface {
	isResult()
	// TraceSteps returns the run's trace, attached to every variant.
	TraceSteps() []trace.Step
}

// Success is a fully extracted and persisted run.
type Success struct {
	DocumentType       constants.DocumentType
	Extraction         map[string]any
	Confidence         float64
	RawText            string
	Description        string
	Keywords           []string
	ValidationPassed   bool
	CorrectionsApplied int
	ExampleUsedID      string // optional
	ContactID          string // optional
	ContactCreated     bool
	Trace              []trace.Step
}

// NeedsReview is a run flagged for human review, with whatever partial data
// was recovered.
type NeedsReview struct {
	DocumentType constants.DocumentType // optional
	Extraction   map[string]any         // optional
	Reason       string
	Issues       []string
	Trace        []trace.Step
}

// Failed is a terminal failure with a causal stage label.
type Failed struct {
	Reason string
	Stage  string
	Trace  []trace.Step
}

func (Success) isResult()     {}
func (NeedsReview) isResult() {}
func (Failed) isResult()      {}

func (r Success) TraceSteps() []trace.Step     { return r.Trace }
func (r NeedsReview) TraceSteps() []trace.Step { return r.Trace }
func (r Failed) TraceSteps() []trace.Step      { return r.Trace }
