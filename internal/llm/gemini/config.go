// Package gemini implements llm.Session on the Gemini API, including the
// bounded function-calling loop used by the primary agent session.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Config for the Gemini session factory.
type Config struct {
	APIKey            string  // if empty, falls back to env GEMINI_API_KEY
	BaseURL           string  // optional override, useful for proxies/testing
	Model             string  // e.g., "gemini-2.0-flash"
	Temperature       float32 // 0..2
	Timeout           time.Duration
	RequestsPerMinute int
}

// Factory holds the shared client; sessions created from it carry only
// per-run conversation state.
type Factory struct {
	client  *genai.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewFactory(ctx context.Context, cfg Config, logger *slog.Logger) (*Factory, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if logger == nil {
		logger = slog.Default()
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Factory{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		logger:  logger,
	}, nil
}
