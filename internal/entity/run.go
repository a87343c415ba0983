package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run is the audit record of one document-processing attempt.
type Run struct {
	ID         string    `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Result     string    `json:"result"` // "success", "needs_review" or "failed"
	Reason     string    `json:"reason,omitempty"`
	Elapsed    time.Duration
	CreatedAt  time.Time `json:"created_at"`
}

// RunStep is one persisted trace step of a run.
type RunStep struct {
	RunID      string         `json:"run_id"`
	Index      int            `json:"index"`
	Action     string         `json:"action"`
	Tool       string         `json:"tool,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Input      map[string]any `json:"input,omitempty"`
	Output     any            `json:"output,omitempty"`
	Note       string         `json:"note,omitempty"`
}
