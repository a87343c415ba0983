// Package orchestrator drives a tool-calling agent through the document
// extraction pipeline and classifies every run into exactly one terminal
// result. Nothing panics or errors past Process; every failure mode becomes
// a Failed result carrying the partial trace.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/common"
	"github.com/fintrack-io/docpipe/internal/contacts"
	"github.com/fintrack-io/docpipe/internal/llm"
	"github.com/fintrack-io/docpipe/internal/trace"
)

// Config holds the run-independent orchestrator settings. Passed explicitly
// so runs with different configurations can execute in parallel.
type Config struct {
	Autonomy constants.AutonomyMode
}

type Orchestrator struct {
	cfg      Config
	sessions llm.SessionFactory
	collab   Collaborators
	policy   *contacts.Policy
	logger   *slog.Logger
}

func New(cfg Config, sessions llm.SessionFactory, collab Collaborators, policy *contacts.Policy, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = contacts.NewPolicy(contacts.VATOnly)
	}
	return &Orchestrator{
		cfg:      cfg,
		sessions: sessions,
		collab:   collab,
		policy:   policy,
		logger:   logger,
	}
}

// Process runs one document-processing attempt end to end. It always
// returns a terminal Result with the full trace attached; it never panics
// and never returns nil.
func (o *Orchestrator) Process(ctx context.Context, req ProcessRequest) (result Result) {
	start := time.Now()
	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx = common.WithRunID(ctx, runID)
	ctx = common.WithTenantID(ctx, req.TenantID.String())
	logger := o.logger.With("run_id", runID, "document_id", req.DocumentID, "tenant_id", req.TenantID)
	tr := trace.NewCollector()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("orchestrator.run.panic", "panic", r)
			tr.Record(trace.Entry{Action: "orchestrator_panic", Note: fmt.Sprint(r)})
			result = Failed{
				Reason: fmt.Sprintf("internal error: %v", r),
				Stage:  StageOrchestrator,
				Trace:  tr.Snapshot(),
			}
		}
	}()

	logger.Info("orchestrator.run.start",
		"autonomy", o.cfg.Autonomy,
		"max_iterations", o.cfg.Autonomy.MaxIterations(),
		"link_policy", o.policy.Variant(),
	)

	raw, err := o.runAgentSession(ctx, req, runID, tr, logger)
	if err != nil {
		return Failed{
			Reason: fmt.Sprintf("Agent session failed: %v", err),
			Stage:  StageOrchestrator,
			Trace:  tr.Snapshot(),
		}
	}

	res := o.resolveOutput(ctx, raw, tr)
	if res.out == nil {
		logger.Error("orchestrator.run.unresolvable_output",
			"raw_len", len(raw), "elapsed_ms", time.Since(start).Milliseconds())
		return Failed{
			Reason: "Failed to parse orchestrator output",
			Stage:  StageOrchestrator,
			Trace:  tr.Snapshot(),
		}
	}

	appendNonCriticalIssues(res.out, tr.Snapshot())

	if err := o.ensurePersisted(ctx, req, runID, res, tr); err != nil {
		logger.Error("orchestrator.run.persistence_failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Failed{
			Reason: fmt.Sprintf("Failed to persist extraction: %v", err),
			Stage:  StageStoreExtraction,
			Trace:  tr.Snapshot(),
		}
	}

	result = classify(res.out, tr.Snapshot())
	logger.Info("orchestrator.run.done",
		"result", resultKind(result),
		"used_fallback", res.usedFallback,
		"steps", tr.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result
}

// runAgentSession executes the primary bounded tool-calling session. Any
// error is recorded as a terminal trace step before being returned; the
// session is released on every exit path.
func (o *Orchestrator) runAgentSession(ctx context.Context, req ProcessRequest, runID string, tr *trace.Collector, logger *slog.Logger) (raw string, err error) {
	reg := o.buildToolset(tr, req, runID, logger)

	sess, err := o.sessions.Open(ctx)
	if err != nil {
		tr.Record(trace.Entry{Action: "agent_session", Note: "open session: " + err.Error()})
		logger.Error("orchestrator.session.open_failed", "error", err)
		return "", fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("orchestrator.session.close_failed", "error", cerr)
		}
	}()

	start := time.Now()
	res, err := sess.Run(ctx, llm.SessionRequest{
		SystemPrompt:  o.systemPrompt(),
		TaskPrompt:    o.taskPrompt(req, runID),
		Registry:      reg,
		MaxIterations: o.cfg.Autonomy.MaxIterations(),
	})
	if err != nil {
		tr.Record(trace.Entry{
			Action:   "agent_session",
			Duration: time.Since(start),
			Note:     err.Error(),
		})
		logger.Error("orchestrator.session.failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	tr.Record(trace.Entry{
		Action:   "agent_session",
		Duration: res.Elapsed,
		Output:   map[string]any{"iterations": res.Iterations, "textLength": len(res.Text)},
	})
	logger.Info("orchestrator.session.done",
		"iterations", res.Iterations, "text_len", len(res.Text),
		"elapsed_ms", res.Elapsed.Milliseconds())
	return res.Text, nil
}

func resultKind(r Result) string {
	switch r.(type) {
	case Success:
		return "success"
	case NeedsReview:
		return "needs_review"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
