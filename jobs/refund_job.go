package jobs

import (
	"fmt"
	"log"

	"github.com/jmulders/ccv_reconciler/gateway"
	"github.com/jmulders/ccv_reconciler/reconcile"
	"github.com/jmulders/ccv_reconciler/store"
)

// RefreshPendingRefunds scans orders flagged with unresolved refunds and
// refreshes their history from the gateway in one batched query per order.
// A transport error for one order leaves that order's history and flag
// untouched and does not stop the batch.
func RefreshPendingRefunds(st store.OrderStore, gw gateway.Gateway) error {
	log.Println("Running job: RefreshPendingRefunds...")

	orders, err := st.WithPendingRefunds()
	if err != nil {
		log.Printf("Error scanning orders with pending refunds: %v", err)
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

			refunds, err := order.Refunds()
			if err != nil {
				return err
			}

			if len(refunds) == 0 {
				// Flag without history is a data-integrity leftover.
				// Self-heal: clear it, note it, no gateway call.
				log.Printf("Order %s flagged for pending refunds but has no refund history, clearing flag.", order.ID)
				order.HasPendingRefunds = false
				order.AddNote("Refund flag cleared", "order was flagged for pending refunds without any refund history")
				return tx.Save(order)
			}

			references := make([]string, 0, len(refunds))
			for _, refund := range refunds {
				references = append(references, refund.Reference)
			}

			snapshots, err := gw.GetTransactions(references)
			if err != nil {
				return err
			}

			if err := reconcile.MergeStatuses(order, snapshots); err != nil {
				return err
			}
			return tx.Save(order)
		})
		if err != nil {
			failed++
			log.Printf("Refund refresh failed for order %s: %v", orderID, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("refund poll: %d of %d order(s) failed", failed, len(orders))
	}
	log.Printf("Refund poll refreshed %d order(s).", len(orders))
	return nil
}
