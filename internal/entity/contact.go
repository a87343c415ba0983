package entity

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a counterparty of a tenant.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	VATNumber string    `json:"vat_number"`
	Address   string    `json:"address,omitempty"`
	IBAN      string    `json:"iban,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
