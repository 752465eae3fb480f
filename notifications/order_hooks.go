package notifications

import (
	"fmt"

	"github.com/jmulders/ccv_reconciler/models"
	"github.com/jmulders/ccv_reconciler/reconcile"
)

// EmailHooks notifies the customer after an order changes state. Send
// failures are logged inside the email service and never surface into
// reconciliation.
type EmailHooks struct{}

func (EmailHooks) OnOrderAuthorized(order *models.Order, _ *reconcile.Verdict) {
	subject := "Your payment was received"
	body := fmt.Sprintf(
		"<h1>Payment received</h1><p>Your payment of %s %s was authorized and your order is now being processed.</p>",
		order.TotalGrossAmount.StringFixed(2), order.Currency,
	)
	go SendEmail("", order.CustomerEmail, subject, body)
}

func (EmailHooks) OnOrderFailed(order *models.Order, _ *reconcile.Verdict) {
	subject := "There was a problem with your payment"
	body := "<h1>Payment failed</h1><p>Your payment could not be completed. No amount was charged. Please try placing the order again.</p>"
	go SendEmail("", order.CustomerEmail, subject, body)
}

var _ reconcile.Hooks = EmailHooks{}
