package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RefundTypeRefund   = "refund"
	RefundTypeReversal = "reversal"
)

// Refund is one entry in an order's serialized refund history. Entries are
// append-only: once recorded they are only ever status-updated in place,
// matched by Reference.
type Refund struct {
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	FailureCode string          `json:"failureCode,omitempty"`
	Date        time.Time       `json:"date"`
	Type        string          `json:"type"`
}
