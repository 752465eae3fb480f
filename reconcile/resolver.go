package reconcile

import (
	"strings"

	"github.com/jmulders/ccv_reconciler/gateway"
	"github.com/jmulders/ccv_reconciler/models"
)

// methodTokenPrefix turns a raw gateway method like "ideal" into the
// storefront token "CCV_IDEAL".
const methodTokenPrefix = "CCV_"

// Verdict is the transient outcome of one resolution pass. It is never
// persisted; every pass recomputes it from the live gateway state.
type Verdict struct {
	Snapshot      *gateway.TransactionSnapshot
	ChildSnapshot *gateway.TransactionSnapshot

	Reference string
	Status    string
	Context   string

	PriceMismatch    bool
	CurrencyMismatch bool
	Authorized       bool
	MissingReference bool

	Err error
}

// Resolve fetches the current gateway state for an order's transaction and
// applies it onto the order's payment fields. Safe to call repeatedly: the
// only mutations are the idempotent field copies onto the instrument, and a
// transport error mutates nothing at all.
func Resolve(gw gateway.Gateway, order *models.Order, contextTag string) *Verdict {
	verdict := &Verdict{Context: contextTag}

	reference := order.TransactionReference
	if reference == "" {
		// Terminal data-integrity defect upstream. No network call.
		verdict.MissingReference = true
		return verdict
	}
	verdict.Reference = reference

	snapshot, err := gw.GetTransaction(reference)
	if err != nil {
		verdict.Err = err
		return verdict
	}
	verdict.Snapshot = snapshot
	verdict.Status = snapshot.Status

	// Landing-page payments settle through an underlying method; a second
	// lookup recovers it for display and bookkeeping.
	if snapshot.ChildReferenceID != "" {
		child, err := gw.GetTransaction(snapshot.ChildReferenceID)
		if err != nil {
			verdict.Err = err
			return verdict
		}
		verdict.ChildSnapshot = child
		order.ChildTransactionReference = snapshot.ChildReferenceID
	}

	applySnapshot(order, verdict)

	verdict.CurrencyMismatch = !strings.EqualFold(snapshot.Currency, order.Currency)
	verdict.PriceMismatch = !snapshot.Amount.Equal(order.TotalGrossAmount)
	verdict.Authorized = snapshot.Status == gateway.StatusSuccess &&
		!verdict.CurrencyMismatch && !verdict.PriceMismatch

	return verdict
}

// applySnapshot copies the observed gateway state onto the payment
// instrument. Unconditional: operators see the latest observed state even
// when the verdict is not authorized.
func applySnapshot(order *models.Order, verdict *Verdict) {
	snapshot := verdict.Snapshot

	brand := snapshot.Brand
	method := snapshot.Method
	if verdict.ChildSnapshot != nil {
		if brand == "" {
			brand = verdict.ChildSnapshot.Brand
		}
		method = verdict.ChildSnapshot.Method
	}

	order.Instrument.OrderID = order.ID
	if brand != "" {
		order.Instrument.Brand = brand
	}
	if method != "" {
		order.Instrument.Method = MethodToken(method)
	}
	order.Instrument.TransactionStatus = snapshot.Status
	order.Instrument.FailureCode = snapshot.FailureCode
}

func MethodToken(method string) string {
	return methodTokenPrefix + strings.ToUpper(method)
}
