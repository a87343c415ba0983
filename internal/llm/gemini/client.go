package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/fintrack-io/docpipe/internal/llm"
)

// defaultToolFreeIterations bounds a session with no registry: one request,
// one response.
const defaultToolFreeIterations = 1

type session struct {
	f      *Factory
	id     string
	closed bool
	logger *slog.Logger
}

// Open creates a fresh session. Sessions are single-use; the orchestrator
// opens one per run and one more if the repair sub-agent fires.
func (f *Factory) Open(_ context.Context) (llm.Session, error) {
	id := uuid.New().String()
	return &session{
		f:      f,
		id:     id,
		logger: f.logger.With("session_id", id),
	}, nil
}

func (s *session) Close() error {
	s.closed = true
	return nil
}

// Run executes the bounded function-calling loop. Each model turn may emit
// function calls; those are dispatched through the registry and their
// responses fed back until the model answers in plain text or the iteration
// ceiling is reached.
func (s *session) Run(ctx context.Context, req llm.SessionRequest) (llm.SessionResult, error) {
	if s.closed {
		return llm.SessionResult{}, fmt.Errorf("gemini: session already closed")
	}
	start := time.Now()

	maxIters := req.MaxIterations
	var cfgTools []*genai.Tool
	if req.Registry != nil {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Registry.Declarations()))
		for _, t := range req.Registry.Declarations() {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			})
		}
		cfgTools = []*genai.Tool{{FunctionDeclarations: decls}}
	} else {
		maxIters = defaultToolFreeIterations
	}
	if maxIters <= 0 {
		maxIters = 1
	}

	gcfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.f.cfg.Temperature),
		Tools:       cfgTools,
	}
	if req.SystemPrompt != "" {
		gcfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.TaskPrompt, genai.RoleUser),
	}

	s.logger.Info("llm.session.start",
		"model", s.f.cfg.Model,
		"max_iterations", maxIters,
		"tool_free", req.Registry == nil,
	)

	var lastText string
	for iter := 1; iter <= maxIters; iter++ {
		resp, err := s.generate(ctx, contents, gcfg)
		if err != nil {
			s.logger.Error("llm.session.request_failed",
				"iteration", iter, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return llm.SessionResult{}, fmt.Errorf("gemini: generate: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return llm.SessionResult{}, fmt.Errorf("gemini: empty response at iteration %d", iter)
		}

		candidate := resp.Candidates[0].Content
		contents = append(contents, candidate)
		lastText = resp.Text()

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			s.logger.Info("llm.session.done",
				"iterations", iter,
				"text_len", len(lastText),
				"elapsed_ms", time.Since(start).Milliseconds())
			return llm.SessionResult{
				Text:       lastText,
				Iterations: iter,
				Elapsed:    time.Since(start),
			}, nil
		}
		if req.Registry == nil {
			return llm.SessionResult{}, fmt.Errorf("gemini: tool call in tool-free session")
		}

		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			s.logger.Info("llm.session.tool_call", "iteration", iter, "tool", call.Name)
			out, err := req.Registry.Invoke(ctx, call.Name, call.Args)
			var payload map[string]any
			if err != nil {
				payload = map[string]any{"error": err.Error()}
			} else if m, ok := out.(map[string]any); ok {
				payload = m
			} else {
				payload = map[string]any{"result": out}
			}
			parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, payload))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}

	s.logger.Warn("llm.session.budget_exhausted",
		"max_iterations", maxIters,
		"elapsed_ms", time.Since(start).Milliseconds())
	return llm.SessionResult{}, fmt.Errorf("gemini: iteration budget exhausted after %d tool-call rounds", maxIters)
}

func (s *session) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := s.f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	rctx, cancel := context.WithTimeout(ctx, s.f.cfg.Timeout)
	defer cancel()
	return s.f.client.Models.GenerateContent(rctx, s.f.cfg.Model, contents, cfg)
}

// Generate issues a single rate-limited, session-free model call. Used by
// the vision extraction helpers, which need one-shot calls rather than a
// tool-calling conversation. jsonOutput constrains the response to a JSON
// body.
func (f *Factory) Generate(ctx context.Context, system string, parts []*genai.Part, jsonOutput bool) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(f.cfg.Temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if jsonOutput {
		cfg.ResponseMIMEType = "application/json"
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	rctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()
	start := time.Now()
	resp, err := f.client.Models.GenerateContent(rctx, f.cfg.Model, contents, cfg)
	if err != nil {
		f.logger.Error("llm.generate.failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	text := resp.Text()
	f.logger.Info("llm.generate.ok",
		"text_len", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}
