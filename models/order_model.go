package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// Order is the merchant purchase record reconciliation works against.
// TransactionReference is written once when the payment is initiated and is
// never mutated afterwards; reconciliation only reads it.
type Order struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Status        OrderStatus `gorm:"size:20;not null;default:'created'"`
	CustomerEmail string      `gorm:"size:255"`

	TotalGrossAmount decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency         string          `gorm:"size:3;not null"`

	TransactionReference      string `gorm:"size:255;index"`
	ChildTransactionReference string `gorm:"size:255"`

	// Possession token the gateway echoes back on the redirect/webhook URL.
	AccessToken string `gorm:"size:64;not null"`

	ManualInterventionFlag      bool
	PriceOrCurrencyMismatchFlag bool
	HasPendingRefunds           bool `gorm:"index"`

	RefundHistory datatypes.JSON
	Notes         datatypes.JSON

	Instrument PaymentInstrument `gorm:"foreignkey:OrderID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderNote struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
}

// Refunds decodes the serialized refund history. An empty column decodes to
// an empty slice, never an error.
func (o *Order) Refunds() ([]Refund, error) {
	if len(o.RefundHistory) == 0 {
		return []Refund{}, nil
	}
	var refunds []Refund
	if err := json.Unmarshal(o.RefundHistory, &refunds); err != nil {
		return nil, err
	}
	return refunds, nil
}

func (o *Order) SetRefunds(refunds []Refund) error {
	raw, err := json.Marshal(refunds)
	if err != nil {
		return err
	}
	o.RefundHistory = datatypes.JSON(raw)
	return nil
}

// AddNote appends to the order's audit trail. Decode failures are swallowed
// by restarting the trail; the note itself must never be lost.
func (o *Order) AddNote(title, message string) {
	var notes []OrderNote
	if len(o.Notes) > 0 {
		if err := json.Unmarshal(o.Notes, &notes); err != nil {
			notes = nil
		}
	}
	notes = append(notes, OrderNote{Title: title, Message: message, Date: time.Now().UTC()})
	raw, err := json.Marshal(notes)
	if err != nil {
		return
	}
	o.Notes = datatypes.JSON(raw)
}
