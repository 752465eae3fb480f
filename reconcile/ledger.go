package reconcile

import (
	"fmt"
	"log"
	"time"

	"github.com/jmulders/ccv_reconciler/gateway"
	"github.com/jmulders/ccv_reconciler/models"
	"github.com/shopspring/decimal"
)

// RemainingRefundable is the order total minus every refund attempt that has
// not failed, in the order's currency. Pending and manual-intervention
// entries still count against the remainder.
func RemainingRefundable(order *models.Order) (decimal.Decimal, error) {
	refunds, err := order.Refunds()
	if err != nil {
		return decimal.Zero, err
	}

	remaining := order.TotalGrossAmount
	for _, refund := range refunds {
		if refund.Status != gateway.StatusFailed {
			remaining = remaining.Sub(refund.Amount)
		}
	}
	return remaining, nil
}

// RecordRefundAttempt sends a refund or reversal to the gateway and appends
// the result to the order's refund history. Reversals void the full
// authorized amount, so no amount is ever sent for them; refund amounts go
// out only when explicitly supplied.
//
// A gateway failure is isolated here: it becomes an order note and a nil
// result, never an error past this boundary, and the existing history is
// left untouched.
func RecordRefundAttempt(gw gateway.Gateway, order *models.Order, amount *decimal.Decimal, description string) ([]models.Refund, error) {
	reversal := order.Instrument.TransactionType == models.TransactionTypeAuthorise

	var snapshot *gateway.TransactionSnapshot
	var err error
	if reversal {
		snapshot, err = gw.Reverse(order.TransactionReference, description)
	} else {
		snapshot, err = gw.Refund(order.TransactionReference, amount, description)
	}
	if err != nil {
		log.Printf("Refund attempt failed for order %s: %v", order.ID, err)
		order.AddNote("Refund attempt failed", err.Error())
		return nil, nil
	}

	entry := models.Refund{
		Reference:   snapshot.Reference,
		Amount:      refundedAmount(order, snapshot, amount),
		Currency:    order.Currency,
		Status:      snapshot.Status,
		FailureCode: snapshot.FailureCode,
		Date:        time.Now().UTC(),
		Type:        models.RefundTypeRefund,
	}
	if reversal {
		entry.Type = models.RefundTypeReversal
	}

	refunds, err := order.Refunds()
	if err != nil {
		return nil, fmt.Errorf("corrupt refund history on order %s: %v", order.ID, err)
	}
	refunds = append(refunds, entry)
	if err := order.SetRefunds(refunds); err != nil {
		return nil, err
	}
	recomputeRefundFlags(order, refunds)

	return refunds, nil
}

// MergeStatuses overwrites each history entry's status and failure code from
// the snapshot with the matching reference. Entries without a matching
// snapshot stay as they are. Idempotent.
func MergeStatuses(order *models.Order, snapshots []gateway.TransactionSnapshot) error {
	refunds, err := order.Refunds()
	if err != nil {
		return err
	}

	byReference := make(map[string]gateway.TransactionSnapshot, len(snapshots))
	for _, snapshot := range snapshots {
		byReference[snapshot.Reference] = snapshot
	}

	for i := range refunds {
		snapshot, ok := byReference[refunds[i].Reference]
		if !ok {
			continue
		}
		refunds[i].Status = snapshot.Status
		if snapshot.FailureCode != "" {
			refunds[i].FailureCode = snapshot.FailureCode
		}
	}

	if err := order.SetRefunds(refunds); err != nil {
		return err
	}
	recomputeRefundFlags(order, refunds)
	return nil
}

func recomputeRefundFlags(order *models.Order, refunds []models.Refund) {
	pending := false
	for _, refund := range refunds {
		switch refund.Status {
		case gateway.StatusPending:
			pending = true
		case gateway.StatusManualIntervention:
			order.ManualInterventionFlag = true
		}
	}
	order.HasPendingRefunds = pending
}

// refundedAmount picks what to record for a new history entry: the gateway's
// reported amount when present, otherwise the requested amount, otherwise
// the full order total (the reversal case).
func refundedAmount(order *models.Order, snapshot *gateway.TransactionSnapshot, requested *decimal.Decimal) decimal.Decimal {
	if snapshot.Amount.IsPositive() {
		return snapshot.Amount
	}
	if requested != nil {
		return *requested
	}
	return order.TotalGrossAmount
}
