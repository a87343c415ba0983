// Package registry resolves VAT numbers against the EU VIES company
// register.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fintrack-io/docpipe/internal/validate"
)

const defaultBaseURL = "https://ec.europa.eu/taxation_customs/vies/rest-api"

// Client implements orchestrator.LegalEntityDirectory on the VIES REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func NewClient(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type checkVATRequest struct {
	CountryCode string `json:"countryCode"`
	VATNumber   string `json:"vatNumber"`
}

type checkVATResponse struct {
	Valid   bool   `json:"valid"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// LookupLegalEntity checks a VAT number against the register. found=false
// means the number is well-formed but not registered.
func (c *Client) LookupLegalEntity(ctx context.Context, vatNumber string) (map[string]any, bool, error) {
	vat := validate.NormalizeVAT(vatNumber)
	if len(vat) < 3 {
		return nil, false, fmt.Errorf("vies: VAT number %q too short", vatNumber)
	}

	body, err := json.Marshal(checkVATRequest{
		CountryCode: vat[:2],
		VATNumber:   vat[2:],
	})
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/check-vat-number", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("vies.lookup.failed", "error", err)
		return nil, false, fmt.Errorf("vies: check vat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("vies.lookup.failed", "status", resp.StatusCode)
		return nil, false, fmt.Errorf("vies: unexpected status %d", resp.StatusCode)
	}

	var out checkVATResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("vies: decode response: %w", err)
	}

	c.logger.Info("vies.lookup.ok",
		"valid", out.Valid, "elapsed_ms", time.Since(start).Milliseconds())
	if !out.Valid {
		return nil, false, nil
	}
	return map[string]any{
		"vatNumber": vat,
		"name":      strings.TrimSpace(out.Name),
		"address":   strings.TrimSpace(out.Address),
	}, true, nil
}
