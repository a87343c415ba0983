package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/constants"
	"github.com/fintrack-io/docpipe/internal/common"
)

// IndexerRepository backs the non-critical indexing side channels: chunk
// storage, extraction examples and indexing-status updates. It satisfies
// orchestrator.Indexer.
type IndexerRepository interface {
	StoreChunks(ctx context.Context, documentID uuid.UUID, chunks []string) error
	IndexExample(ctx context.Context, documentID uuid.UUID, docType constants.DocumentType, extraction map[string]any) error
	UpdateIndexingStatus(ctx context.Context, documentID uuid.UUID, status constants.IndexingStatus) error
}

type indexerRepository struct {
	db        *DB
	documents DocumentRepository
	logger    *slog.Logger
}

func NewIndexerRepository(db *DB, documents DocumentRepository, logger *slog.Logger) IndexerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &indexerRepository{db: db, documents: documents, logger: logger}
}

// StoreChunks replaces the document's chunk set. Chunks are whole-document
// state, so a partial update would corrupt retrieval.
func (r *indexerRepository) StoreChunks(ctx context.Context, documentID uuid.UUID, chunks []string) error {
	logger := r.runLogger(ctx)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.db.rebind(
		`DELETE FROM document_chunks WHERE document_id = ?`), documentID.String()); err != nil {
		return err
	}
	for i, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, r.db.rebind(
			`INSERT INTO document_chunks (document_id, seq, content) VALUES (?, ?, ?)`),
			documentID.String(), i, chunk); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Info("indexer.chunks.ok", "document_id", documentID, "chunks", len(chunks))
	return nil
}

func (r *indexerRepository) IndexExample(ctx context.Context, documentID uuid.UUID, docType constants.DocumentType, extraction map[string]any) error {
	logger := r.runLogger(ctx)
	if extraction == nil {
		return fmt.Errorf("index example: extraction is required")
	}
	fields, err := json.Marshal(extraction)
	if err != nil {
		return fmt.Errorf("marshal example fields: %w", err)
	}
	id := uuid.New()
	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extraction_examples (id, document_id, document_type, fields, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		id.String(), documentID.String(), string(docType), string(fields), time.Now().UTC())
	if err != nil {
		logger.Error("indexer.example.failed", "document_id", documentID, "error", err)
		return err
	}
	logger.Info("indexer.example.ok", "document_id", documentID, "example_id", id, "document_type", docType)
	return nil
}

// runLogger tags side-channel log lines with the run and tenant identifiers
// the orchestrator carries through the context.
func (r *indexerRepository) runLogger(ctx context.Context) *slog.Logger {
	logger := r.logger
	if runID := common.RunIDFromContext(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}
	if tenantID := common.TenantIDFromContext(ctx); tenantID != "" {
		logger = logger.With("tenant_id", tenantID)
	}
	return logger
}

func (r *indexerRepository) UpdateIndexingStatus(ctx context.Context, documentID uuid.UUID, status constants.IndexingStatus) error {
	return r.documents.UpdateIndexingStatus(ctx, documentID, status)
}
