package gateway

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	StatusPending            = "pending"
	StatusSuccess            = "success"
	StatusFailed             = "failed"
	StatusManualIntervention = "manualintervention"
)

// TransactionSnapshot is the normalized view of one gateway transaction.
// It is never persisted verbatim; reconciliation copies selected fields onto
// the order and its payment instrument.
type TransactionSnapshot struct {
	Reference        string          `json:"reference"`
	Status           string          `json:"status"`
	FailureCode      string          `json:"failureCode,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Method           string          `json:"method"`
	Brand            string          `json:"brand,omitempty"`
	ChildReferenceID string          `json:"childReferenceId,omitempty"`

	Details *TransactionDetails `json:"details,omitempty"`
}

// TransactionDetails carries the card-specific extras a success snapshot may
// include. ExpiryDate is the gateway's 4-digit MMYY form.
type TransactionDetails struct {
	MaskedPan        string `json:"maskedPan,omitempty"`
	ExpiryDate       string `json:"expiryDate,omitempty"`
	VaultAccessToken string `json:"vaultAccessToken,omitempty"`
	AcquirerResponse string `json:"acquirerResponseCode,omitempty"`
}

// Normalize lowercases the status so comparisons elsewhere never have to
// care how the gateway cased it.
func (s *TransactionSnapshot) Normalize() {
	s.Status = strings.ToLower(s.Status)
}

// PaymentRequest starts a new payment at the gateway.
type PaymentRequest struct {
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	Method                 string          `json:"method"`
	ReturnURL              string          `json:"returnUrl"`
	WebhookURL             string          `json:"webhookUrl"`
	MerchantOrderReference string          `json:"merchantOrderReference"`
	Description            string          `json:"description,omitempty"`
}

type PaymentResponse struct {
	Reference string `json:"reference"`
	PayURL    string `json:"payUrl"`
}
