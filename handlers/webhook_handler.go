package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/jmulders/ccv_reconciler/models"
	"github.com/jmulders/ccv_reconciler/reconcile"
	"github.com/jmulders/ccv_reconciler/store"
)

type webhookBody struct {
	ID string `json:"id"`
}

// HandleWebhook is the gateway-driven entry point. One transition:
// created -> {unchanged | failed | open}. Anything already resolved by the
// poll job answers success without reprocessing, so gateway retries stay
// harmless.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	ref := c.Query("ref")
	token := c.Query("token")
	if ref == "" || token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing ref or token parameter"})
	}

	var body webhookBody
	if err := c.BodyParser(&body); err != nil || body.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}

	order, err := h.Store.GetOrderByToken(ref, token)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	if order.Status != models.OrderStatusCreated {
		log.Printf("Webhook for order %s ignored, already resolved (status %s)", order.ID, order.Status)
		return c.JSON(fiber.Map{"success": true})
	}

	// A callback whose transaction id does not match the stored reference is
	// forged or misrouted. Never process it.
	if body.ID != order.TransactionReference {
		log.Printf("🔥 Webhook reference mismatch for order %s: got %s, have %s", order.ID, body.ID, order.TransactionReference)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Transaction reference mismatch"})
	}

	err = h.Store.Transaction(func(tx store.OrderStore) error {
		current, err := tx.GetOrder(ref)
		if err != nil {
			return err
		}
		if current.Status != models.OrderStatusCreated {
			// Lost the race against the poll job. Benign.
			return nil
		}
		verdict := reconcile.Resolve(h.Gateway, current, "webhook")
		return h.Dispatcher.Dispatch(tx, current, verdict)
	})
	if err != nil {
		// Acknowledge anyway: a retry of a partially applied pass would do
		// more harm than the next poll quietly finishing the job.
		log.Printf("Webhook reconciliation for order %s failed: %v", order.ID, err)
	}

	return c.JSON(fiber.Map{"success": true})
}
