package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/contacts"
)

// Collaborator seams. Everything the orchestrator needs from the outside
// world comes in through these narrow contracts; implementations live in
// internal/repository or with the caller.

// ImageFetcher renders/loads the document image for the agent.
type ImageFetcher interface {
	FetchImage(ctx context.Context, documentID, tenantID uuid.UUID) (data []byte, mimeType string, err error)
}

// ParsedExtractionFetcher returns a pre-parsed extraction for inbound
// documents that arrived already structured (e.g. PEPPOL).
type ParsedExtractionFetcher interface {
	FetchParsedExtraction(ctx context.Context, documentID uuid.UUID) (extraction map[string]any, found bool, err error)
}

// ContactInfo is a resolved counterparty from the contact directory.
type ContactInfo struct {
	ID        string
	Name      string
	VATNumber string
	// MatchType is "EXACT" for a normalized-VAT equality match, "FUZZY"
	// otherwise. Fallback contact recovery only trusts EXACT.
	MatchType string
}

// ContactCreateResult reports a create_contact attempt.
type ContactCreateResult struct {
	Success   bool
	ContactID string
	Error     string
}

// ContactDirectory looks up and creates tenant contacts.
type ContactDirectory interface {
	LookupContact(ctx context.Context, tenantID uuid.UUID, vatNumber string) (*ContactInfo, error)
	CreateContact(ctx context.Context, tenantID uuid.UUID, name, vatNumber, address string) (ContactCreateResult, error)
}

// LegalEntityDirectory resolves a VAT number against the company register.
type LegalEntityDirectory interface {
	LookupLegalEntity(ctx context.Context, vatNumber string) (entity map[string]any, found bool, err error)
}

// StoreExtractionRequest bundles everything the persistence seam needs.
type StoreExtractionRequest struct {
	DocumentID     uuid.UUID
	TenantID       uuid.UUID
	RunID          string
	DocumentType   constants.DocumentType
	Extraction     map[string]any
	Description    string
	Keywords       []string
	Confidence     float64
	RawText        string
	ContactID      string
	ContactCreated bool
	LinkDecision   *contacts.LinkDecision
}

// ExtractionStore durably persists a resolved extraction. The boolean is the
// store's own verdict; false without an error still means the data is NOT
// persisted.
type ExtractionStore interface {
	StoreExtraction(ctx context.Context, req StoreExtractionRequest) (bool, error)
}

// Indexer covers the non-critical side channels: chunk storage, example
// indexing and indexing-status updates. Failures here become issues on the
// result, never run failures.
type Indexer interface {
	StoreChunks(ctx context.Context, documentID uuid.UUID, chunks []string) error
	IndexExample(ctx context.Context, documentID uuid.UUID, docType constants.DocumentType, extraction map[string]any) error
	UpdateIndexingStatus(ctx context.Context, documentID uuid.UUID, status constants.IndexingStatus) error
}

// Function-shaped seams for the concrete extraction/enrichment tools. Their
// implementations (vision models, chunkers, generators) live elsewhere.
type (
	ClassifyFunc func(ctx context.Context, image []byte, mimeType string) (docType string, confidence float64, err error)
	ExtractFunc  func(ctx context.Context, image []byte, mimeType string, hints map[string]any) (map[string]any, error)
	DescribeFunc func(ctx context.Context, extraction map[string]any) (string, error)
	KeywordsFunc func(ctx context.Context, extraction map[string]any) ([]string, error)
)

// Collaborators wires every seam for one orchestrator instance. All fields
// are treated as read-only; nothing is cached or mutated across runs.
type Collaborators struct {
	Images        ImageFetcher
	Parsed        ParsedExtractionFetcher
	Contacts      ContactDirectory
	LegalEntities LegalEntityDirectory
	Store         ExtractionStore
	Indexer       Indexer

	Classify ClassifyFunc
	// Extractors maps per-type extraction tool names
	// (constants.ToolExtract*) to their implementations.
	Extractors map[string]ExtractFunc
	Describe   DescribeFunc
	Keywords   KeywordsFunc
}

// ProcessRequest is one document-processing attempt.
type ProcessRequest struct {
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	RunID      string // optional external run id; generated when empty

	// Tenant context used in prompts and contact matching. Both optional.
	TenantVAT   string
	CompanyName string

	// Paging hints for image rendering. Zero means collaborator defaults.
	MaxPages int
	DPI      int
}
