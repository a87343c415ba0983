package repository

import (
	"context"
	"fmt"
	"log/slog"
)

// Schema DDL, written to run unchanged on both Postgres and SQLite.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		mime_type TEXT NOT NULL DEFAULT '',
		image_data BLOB,
		parsed_extraction TEXT,
		indexing_status TEXT NOT NULL DEFAULT 'QUEUED',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		vat_number TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		iban TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_tenant_vat ON contacts (tenant_id, vat_number)`,
	`CREATE TABLE IF NOT EXISTS extractions (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		document_type TEXT NOT NULL,
		fields TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		confidence REAL NOT NULL DEFAULT 0,
		raw_text TEXT NOT NULL DEFAULT '',
		contact_id TEXT NOT NULL DEFAULT '',
		contact_created INTEGER NOT NULL DEFAULT 0,
		link_type TEXT NOT NULL DEFAULT '',
		link_reason TEXT NOT NULL DEFAULT '',
		link_confidence REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_extractions_document ON extractions (document_id)`,
	`CREATE TABLE IF NOT EXISTS document_chunks (
		document_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (document_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS extraction_examples (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		document_type TEXT NOT NULL,
		fields TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		result TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS run_steps (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		action TEXT NOT NULL,
		tool TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		input TEXT,
		output TEXT,
		note TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, idx)
	)`,
}

// Migrate applies the schema. Idempotent.
func Migrate(ctx context.Context, db *DB, logger *slog.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("db.migrate.failed", "error", err)
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	logger.Info("db.migrate.ok", "statements", len(schemaStatements))
	return nil
}
