package jobs

import (
	"fmt"
	"log"

	"github.com/jmulders/ccv_reconciler/gateway"
	"github.com/jmulders/ccv_reconciler/models"
	"github.com/jmulders/ccv_reconciler/reconcile"
	"github.com/jmulders/ccv_reconciler/store"
)

// CheckPendingAuthorizations scans every order still awaiting authorization
// and runs one reconciliation pass per order. A failure on one order is
// logged and counted but never halts the rest of the batch.
func CheckPendingAuthorizations(st store.OrderStore, gw gateway.Gateway, dispatcher *reconcile.Dispatcher) error {
	log.Println("Running job: CheckPendingAuthorizations...")

	orders, err := st.AwaitingAuthorization()
	if err != nil {
		log.Printf("Error scanning orders awaiting authorization: %v", err)
		return err
	}

	if len(orders) == 0 {
		return nil
	}

	var failed int
	for i := range orders {
		orderID := orders[i].ID.String()
		err := st.Transaction(func(tx store.OrderStore) error {
			order, err := tx.GetOrder(orderID)
			if err != nil {
				return err
			}
			if order.Status != models.OrderStatusCreated {
				// Resolved by a webhook since the scan. Nothing to do.
				return nil
			}
			verdict := reconcile.Resolve(gw, order, "poll")
			return dispatcher.Dispatch(tx, order, verdict)
		})
		if err != nil {
			failed++
			log.Printf("Reconciliation failed for order %s: %v", orderID, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("authorization poll: %d of %d order(s) failed", failed, len(orders))
	}
	log.Printf("Authorization poll reconciled %d order(s).", len(orders))
	return nil
}
