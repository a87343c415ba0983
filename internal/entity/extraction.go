package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/constants"
)

// StoredExtraction is the durably persisted result of a processing run.
type StoredExtraction struct {
	ID           uuid.UUID              `json:"id"`
	DocumentID   uuid.UUID              `json:"document_id"`
	TenantID     uuid.UUID              `json:"tenant_id"`
	RunID        string                 `json:"run_id"`
	DocumentType constants.DocumentType `json:"document_type"`
	Fields       map[string]any         `json:"fields"`
	Description  string                 `json:"description,omitempty"`
	Keywords     []string               `json:"keywords"`
	Confidence   float64                `json:"confidence"`
	RawText      string                 `json:"raw_text,omitempty"`

	ContactID      string `json:"contact_id,omitempty"`
	ContactCreated bool   `json:"contact_created"`
	// LinkType/LinkReason record how the contact link was decided
	// (AUTO_LINK, SUGGEST or NONE), empty when no decision was made.
	LinkType       string  `json:"link_type,omitempty"`
	LinkReason     string  `json:"link_reason,omitempty"`
	LinkConfidence float64 `json:"link_confidence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
