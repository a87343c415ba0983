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
)

// DocumentRepository stores documents and serves the orchestrator's image
// and parsed-extraction seams.
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc *entity.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	FetchImage(ctx context.Context, documentID, tenantID uuid.UUID) ([]byte, string, error)
	FetchParsedExtraction(ctx context.Context, documentID uuid.UUID) (map[string]any, bool, error)
	UpdateIndexingStatus(ctx context.Context, documentID uuid.UUID, status constants.IndexingStatus) error
}

type documentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) CreateDocument(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.IndexingStatus == "" {
		doc.IndexingStatus = constants.IndexingQueued
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	var parsed any
	if doc.ParsedExtraction != nil {
		b, err := json.Marshal(doc.ParsedExtraction)
		if err != nil {
			return fmt.Errorf("marshal parsed extraction: %w", err)
		}
		parsed = string(b)
	}

	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO documents (id, tenant_id, filename, mime_type, image_data, parsed_extraction, indexing_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.ID.String(), doc.TenantID.String(), doc.Filename, doc.MimeType,
		doc.ImageData, parsed, string(doc.IndexingStatus), now, now,
	)
	if err != nil {
		r.logger.Error("document.create.failed", "document_id", doc.ID, "error", err)
		return err
	}
	r.logger.Info("document.create.ok", "document_id", doc.ID, "tenant_id", doc.TenantID, "filename", doc.Filename)
	return nil
}

func (r *documentRepository) GetDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, tenant_id, filename, mime_type, image_data, parsed_extraction, indexing_status, created_at, updated_at
		 FROM documents WHERE id = ?`), id.String())

	var (
		doc        entity.Document
		idStr      string
		tenantStr  string
		parsedJSON sql.NullString
		status     string
	)
	err := row.Scan(&idStr, &tenantStr, &doc.Filename, &doc.MimeType, &doc.ImageData,
		&parsedJSON, &status, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("document.get.failed", "document_id", id, "error", err)
		return nil, err
	}
	if doc.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse document id: %w", err)
	}
	if doc.TenantID, err = uuid.Parse(tenantStr); err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	doc.IndexingStatus = constants.IndexingStatus(status)
	if parsedJSON.Valid && parsedJSON.String != "" {
		if err := json.Unmarshal([]byte(parsedJSON.String), &doc.ParsedExtraction); err != nil {
			return nil, fmt.Errorf("unmarshal parsed extraction: %w", err)
		}
	}
	return &doc, nil
}

func (r *documentRepository) FetchImage(ctx context.Context, documentID, tenantID uuid.UUID) ([]byte, string, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT image_data, mime_type FROM documents WHERE id = ? AND tenant_id = ?`),
		documentID.String(), tenantID.String())

	var (
		data []byte
		mime string
	)
	err := row.Scan(&data, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("document %s: %w for tenant", documentID, common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("document.fetch_image.failed", "document_id", documentID, "error", err)
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("document %s: no image data", documentID)
	}
	return data, mime, nil
}

func (r *documentRepository) FetchParsedExtraction(ctx context.Context, documentID uuid.UUID) (map[string]any, bool, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT parsed_extraction FROM documents WHERE id = ?`), documentID.String())

	var parsedJSON sql.NullString
	err := row.Scan(&parsedJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("document %s: %w", documentID, common.ErrNotFound)
	}
	if err != nil {
		return nil, false, err
	}
	if !parsedJSON.Valid || parsedJSON.String == "" {
		return nil, false, nil
	}
	var extraction map[string]any
	if err := json.Unmarshal([]byte(parsedJSON.String), &extraction); err != nil {
		return nil, false, fmt.Errorf("unmarshal parsed extraction: %w", err)
	}
	return extraction, true, nil
}

func (r *documentRepository) UpdateIndexingStatus(ctx context.Context, documentID uuid.UUID, status constants.IndexingStatus) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE documents SET indexing_status = ?, updated_at = ? WHERE id = ?`),
		string(status), time.Now().UTC(), documentID.String())
	if err != nil {
		r.logger.Error("document.indexing_status.failed", "document_id", documentID, "status", status, "error", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", documentID, common.ErrNotFound)
	}
	return nil
}
