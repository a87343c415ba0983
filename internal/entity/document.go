package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/constants"
)

// Document is a financial document awaiting or holding extraction results.
type Document struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	ImageData []byte    `json:"-"`

	// ParsedExtraction is set for documents that arrived already structured
	// (e.g. PEPPOL); nil for scanned/photographed documents.
	ParsedExtraction map[string]any `json:"parsed_extraction,omitempty"`

	IndexingStatus constants.IndexingStatus `json:"indexing_status"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}
