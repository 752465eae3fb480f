package reconcile

import (
	"fmt"
	"log"

	config "github.com/jmulders/ccv_reconciler/configs"
	"github.com/jmulders/ccv_reconciler/gateway"
	"github.com/jmulders/ccv_reconciler/models"
	"github.com/jmulders/ccv_reconciler/store"
)

// Hooks are the extension points fired after an order changes state.
// Handler failures are the collaborator's problem, not reconciled here.
type Hooks interface {
	OnOrderAuthorized(order *models.Order, verdict *Verdict)
	OnOrderFailed(order *models.Order, verdict *Verdict)
}

type NopHooks struct{}

func (NopHooks) OnOrderAuthorized(*models.Order, *Verdict) {}
func (NopHooks) OnOrderFailed(*models.Order, *Verdict)     {}

// Dispatcher turns a reconciliation verdict into order-side effects. Both
// drivers (webhook and polls) terminate here, so there is a single
// reconciliation code path regardless of trigger.
type Dispatcher struct {
	Gateway  gateway.Gateway
	Settings config.Settings
	Hooks    Hooks
}

// Dispatch executes exactly one branch for the verdict. The store passed in
// is expected to be transaction-bound by the caller so the whole pass lands
// atomically.
func (d *Dispatcher) Dispatch(st store.OrderStore, order *models.Order, verdict *Verdict) error {
	switch {
	case verdict.MissingReference:
		return d.failOrder(st, order, verdict, "Missing transaction reference",
			"order has no gateway transaction reference and cannot be reconciled")

	case verdict.Err != nil:
		// Transient by presumption: leave the order untouched and let the
		// next pass retry.
		return verdict.Err

	case verdict.Status == gateway.StatusFailed:
		return d.failOrder(st, order, verdict, "Payment failed",
			failureMessage(verdict.Snapshot))

	case verdict.Status == gateway.StatusManualIntervention:
		order.ManualInterventionFlag = true
		return st.Save(order)

	case verdict.Status == gateway.StatusSuccess && (verdict.PriceMismatch || verdict.CurrencyMismatch):
		return d.failMismatched(st, order, verdict)

	case verdict.Authorized:
		return d.placeAuthorized(st, order, verdict)

	case verdict.Status == gateway.StatusPending:
		// Order stays created; a future pass picks it up. Still persist the
		// observed-state copies the resolver made.
		return st.Save(order)
	}

	return nil
}

func (d *Dispatcher) failMismatched(st store.OrderStore, order *models.Order, verdict *Verdict) error {
	order.PriceOrCurrencyMismatchFlag = true

	if d.Settings.AutoRefund {
		// A failed refund attempt is logged and noted but never blocks
		// failing the order.
		if _, err := RecordRefundAttempt(d.Gateway, order, nil, "automatic refund after amount mismatch"); err != nil {
			log.Printf("Auto refund for order %s could not be recorded: %v", order.ID, err)
		}
	}

	snapshot := verdict.Snapshot
	message := fmt.Sprintf("gateway reported %s %s, order expects %s %s",
		snapshot.Amount.StringFixed(2), snapshot.Currency,
		order.TotalGrossAmount.StringFixed(2), order.Currency)
	return d.failOrder(st, order, verdict, "Amount or currency mismatch", message)
}

func (d *Dispatcher) placeAuthorized(st store.OrderStore, order *models.Order, verdict *Verdict) error {
	if order.Instrument.Amount.IsZero() {
		order.Instrument.Amount = order.TotalGrossAmount
		order.Instrument.Currency = order.Currency
	}

	if d.Settings.VaultStorage {
		if stored := vaultedInstrument(order, verdict.Snapshot); stored != nil {
			if err := st.SaveStoredInstrument(stored); err != nil {
				return err
			}
		}
	}

	if err := st.PlaceOrder(order); err != nil {
		return err
	}
	d.Hooks.OnOrderAuthorized(order, verdict)
	return nil
}

// failOrder is the one place the note-plus-hook side effect happens, so no
// failure branch can skip either half.
func (d *Dispatcher) failOrder(st store.OrderStore, order *models.Order, verdict *Verdict, title, message string) error {
	order.AddNote(title, message)
	if err := st.FailOrder(order); err != nil {
		return err
	}
	d.Hooks.OnOrderFailed(order, verdict)
	return nil
}

// vaultedInstrument builds a stored card from a success snapshot carrying a
// vault token. The gateway gives expiry as MMYY; the year is widened by
// prefixing the century.
func vaultedInstrument(order *models.Order, snapshot *gateway.TransactionSnapshot) *models.StoredInstrument {
	if snapshot == nil || snapshot.Details == nil || snapshot.Details.VaultAccessToken == "" {
		return nil
	}

	stored := &models.StoredInstrument{
		CustomerEmail: order.CustomerEmail,
		VaultToken:    snapshot.Details.VaultAccessToken,
		MaskedPan:     snapshot.Details.MaskedPan,
		Brand:         snapshot.Brand,
	}
	if expiry := snapshot.Details.ExpiryDate; len(expiry) == 4 {
		stored.ExpiryMonth = expiry[:2]
		stored.ExpiryYear = "20" + expiry[2:]
	}
	return stored
}

func failureMessage(snapshot *gateway.TransactionSnapshot) string {
	if snapshot != nil && snapshot.FailureCode != "" {
		return fmt.Sprintf("payment failed with code %s", snapshot.FailureCode)
	}
	return "payment failed"
}
