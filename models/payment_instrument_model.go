package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypeSale      = "sale"
	TransactionTypeAuthorise = "authorise"
)

// PaymentInstrument caches the last gateway state observed for an order's
// payment. One row per order.
type PaymentInstrument struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID uuid.UUID `gorm:"type:uuid;unique;not null"`

	// Method holds the storefront token for the resolved payment method,
	// e.g. CCV_IDEAL for a landing page that settled through iDEAL.
	Method string `gorm:"size:50"`
	Brand  string `gorm:"size:50"`

	// TransactionType decides refund vs reversal: authorise-only
	// transactions are voided in full, sales are refunded.
	TransactionType string `gorm:"size:20;not null;default:'sale'"`

	Amount   decimal.Decimal `gorm:"type:numeric(12,2)"`
	Currency string          `gorm:"size:3"`

	TransactionStatus string `gorm:"size:30"`
	FailureCode       string `gorm:"size:100"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoredInstrument is a vaulted card saved for reuse after a successful
// authorization, keyed to the customer rather than the order.
type StoredInstrument struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CustomerEmail string    `gorm:"size:255;not null;index"`

	VaultToken  string `gorm:"size:255;not null"`
	MaskedPan   string `gorm:"size:30"`
	Brand       string `gorm:"size:50"`
	ExpiryMonth string `gorm:"size:2"`
	ExpiryYear  string `gorm:"size:4"`

	CreatedAt time.Time
}
