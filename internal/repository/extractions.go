package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/common"
	"github.com/fintrack-io/docpipe/internal/entity"
	"github.com/fintrack-io/docpipe/internal/orchestrator"
)

// ExtractionRepository persists run results. It satisfies
// orchestrator.ExtractionStore.
type ExtractionRepository interface {
	StoreExtraction(ctx context.Context, req orchestrator.StoreExtractionRequest) (bool, error)
	GetLatestExtraction(ctx context.Context, documentID uuid.UUID) (*entity.StoredExtraction, error)
}

type extractionRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewExtractionRepository(db *DB, logger *slog.Logger) ExtractionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &extractionRepository{db: db, logger: logger}
}

func (r *extractionRepository) StoreExtraction(ctx context.Context, req orchestrator.StoreExtractionRequest) (bool, error) {
	if req.DocumentType == "" || req.Extraction == nil {
		return false, fmt.Errorf("store extraction: documentType and extraction are required")
	}

	fields, err := json.Marshal(req.Extraction)
	if err != nil {
		return false, fmt.Errorf("marshal extraction: %w", err)
	}
	keywords := req.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return false, fmt.Errorf("marshal keywords: %w", err)
	}

	var linkType, linkReason string
	var linkConfidence float64
	if req.LinkDecision != nil {
		linkType = string(req.LinkDecision.Type)
		linkReason = req.LinkDecision.Reason
		linkConfidence = req.LinkDecision.Confidence
	}

	id := uuid.New()
	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extractions
		 (id, document_id, tenant_id, run_id, document_type, fields, description, keywords,
		  confidence, raw_text, contact_id, contact_created, link_type, link_reason, link_confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id.String(), req.DocumentID.String(), req.TenantID.String(), req.RunID,
		string(req.DocumentType), string(fields), req.Description, string(kw),
		req.Confidence, req.RawText, req.ContactID, req.ContactCreated,
		linkType, linkReason, linkConfidence, time.Now().UTC())
	if err != nil {
		r.logger.Error("extraction.store.failed",
			"document_id", req.DocumentID, "run_id", req.RunID, "error", err)
		return false, err
	}

	r.logger.Info("extraction.store.ok",
		"document_id", req.DocumentID, "run_id", req.RunID,
		"document_type", req.DocumentType, "confidence", req.Confidence,
		"contact_linked", req.ContactID != "")
	return true, nil
}

func (r *extractionRepository) GetLatestExtraction(ctx context.Context, documentID uuid.UUID) (*entity.StoredExtraction, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, document_id, tenant_id, run_id, document_type, fields, description, keywords,
		        confidence, raw_text, contact_id, contact_created, link_type, link_reason, link_confidence, created_at
		 FROM extractions WHERE document_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`),
		documentID.String())

	var (
		e          entity.StoredExtraction
		idStr      string
		docStr     string
		tenantStr  string
		docType    string
		fieldsJSON string
		kwJSON     string
	)
	err := row.Scan(&idStr, &docStr, &tenantStr, &e.RunID, &docType, &fieldsJSON, &e.Description, &kwJSON,
		&e.Confidence, &e.RawText, &e.ContactID, &e.ContactCreated,
		&e.LinkType, &e.LinkReason, &e.LinkConfidence, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: no extraction stored: %w", documentID, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if e.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if e.DocumentID, err = uuid.Parse(docStr); err != nil {
		return nil, err
	}
	if e.TenantID, err = uuid.Parse(tenantStr); err != nil {
		return nil, err
	}
	e.DocumentType = constants.DocumentType(docType)
	if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	if err := json.Unmarshal([]byte(kwJSON), &e.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}
	return &e, nil
}
