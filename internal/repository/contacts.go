package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-io/docpipe/internal/common"
	"github.com/fintrack-io/docpipe/internal/entity"
	"github.com/fintrack-io/docpipe/internal/orchestrator"
	"github.com/fintrack-io/docpipe/internal/validate"
)

// ContactRepository is the contact directory backed by the contacts table.
// It satisfies orchestrator.ContactDirectory.
type ContactRepository interface {
	LookupContact(ctx context.Context, tenantID uuid.UUID, vatNumber string) (*orchestrator.ContactInfo, error)
	CreateContact(ctx context.Context, tenantID uuid.UUID, name, vatNumber, address string) (orchestrator.ContactCreateResult, error)
	GetContact(ctx context.Context, id uuid.UUID) (*entity.Contact, error)
}

type contactRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewContactRepository(db *DB, logger *slog.Logger) ContactRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &contactRepository{db: db, logger: logger}
}

// LookupContact matches on the normalized VAT number. A hit is always an
// EXACT match; fuzzy name matching is the agent's job, not the directory's.
func (r *contactRepository) LookupContact(ctx context.Context, tenantID uuid.UUID, vatNumber string) (*orchestrator.ContactInfo, error) {
	vat := validate.NormalizeVAT(vatNumber)
	if vat == "" {
		return nil, nil
	}

	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, name, vat_number FROM contacts WHERE tenant_id = ? AND vat_number = ?`),
		tenantID.String(), vat)

	var info orchestrator.ContactInfo
	err := row.Scan(&info.ID, &info.Name, &info.VATNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("contact.lookup.failed", "tenant_id", tenantID, "error", err)
		return nil, err
	}
	info.MatchType = "EXACT"
	return &info, nil
}

func (r *contactRepository) CreateContact(ctx context.Context, tenantID uuid.UUID, name, vatNumber, address string) (orchestrator.ContactCreateResult, error) {
	if name == "" {
		return orchestrator.ContactCreateResult{Success: false, Error: "contact name is required"}, nil
	}
	vat := validate.NormalizeVAT(vatNumber)

	// Never create a duplicate for a VAT number we already know.
	if vat != "" {
		existing, err := r.LookupContact(ctx, tenantID, vat)
		if err != nil {
			return orchestrator.ContactCreateResult{}, err
		}
		if existing != nil {
			return orchestrator.ContactCreateResult{
				Success:   false,
				ContactID: existing.ID,
				Error:     "contact with this VAT number already exists",
			}, nil
		}
	}

	id := uuid.New()
	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO contacts (id, tenant_id, name, vat_number, address, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		id.String(), tenantID.String(), name, vat, address, time.Now().UTC())
	if err != nil {
		r.logger.Error("contact.create.failed", "tenant_id", tenantID, "error", err)
		return orchestrator.ContactCreateResult{}, err
	}
	r.logger.Info("contact.create.ok", "tenant_id", tenantID, "contact_id", id, "name", name)
	return orchestrator.ContactCreateResult{Success: true, ContactID: id.String()}, nil
}

func (r *contactRepository) GetContact(ctx context.Context, id uuid.UUID) (*entity.Contact, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, tenant_id, name, vat_number, address, iban, created_at FROM contacts WHERE id = ?`),
		id.String())

	var (
		c         entity.Contact
		idStr     string
		tenantStr string
	)
	err := row.Scan(&idStr, &tenantStr, &c.Name, &c.VATNumber, &c.Address, &c.IBAN, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if c.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if c.TenantID, err = uuid.Parse(tenantStr); err != nil {
		return nil, err
	}
	return &c, nil
}
