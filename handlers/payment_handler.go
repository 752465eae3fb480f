package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	config "github.com/jmulders/ccv_reconciler/configs"
	"github.com/jmulders/ccv_reconciler/gateway"
	"github.com/jmulders/ccv_reconciler/models"
	"github.com/jmulders/ccv_reconciler/reconcile"
	"github.com/jmulders/ccv_reconciler/store"
)

type PaymentHandler struct {
	Store      store.OrderStore
	Gateway    gateway.Gateway
	Dispatcher *reconcile.Dispatcher
}

type initiatePaymentRequest struct {
	Method          string `json:"method" validate:"required"`
	TransactionType string `json:"transactionType" validate:"omitempty,oneof=sale authorise"`
	ReturnURL       string `json:"returnUrl" validate:"required,url"`
}

// InitiatePayment starts a payment at the gateway for an order that does not
// have one yet. The reference is written exactly once here; reconciliation
// never touches it again.
func (h *PaymentHandler) InitiatePayment(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	if _, err := uuid.Parse(orderID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	var req initiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	order, err := h.Store.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	if order.Status != models.OrderStatusCreated {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Order can no longer be paid"})
	}
	if order.TransactionReference != "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Order already has a payment in progress"})
	}

	webhookURL := fmt.Sprintf("%s/api/v1/payments/webhook?ref=%s&token=%s",
		config.Config("WEBHOOK_BASE_URL"), order.ID, order.AccessToken)

	resp, err := h.Gateway.CreatePayment(gateway.PaymentRequest{
		Amount:                 order.TotalGrossAmount,
		Currency:               order.Currency,
		Method:                 req.Method,
		ReturnURL:              req.ReturnURL,
		WebhookURL:             webhookURL,
		MerchantOrderReference: order.ID.String(),
	})
	if err != nil {
		log.Printf("🔥 CreatePayment failed for order %s: %v", order.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to create payment"})
	}

	order.TransactionReference = resp.Reference
	order.Instrument.OrderID = order.ID
	order.Instrument.TransactionType = models.TransactionTypeSale
	if req.TransactionType != "" {
		order.Instrument.TransactionType = req.TransactionType
	}
	if err := h.Store.Save(order); err != nil {
		log.Printf("🔥 Failed to save reference for order %s: %v", order.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update order"})
	}

	return c.JSON(fiber.Map{"reference": resp.Reference, "payUrl": resp.PayURL})
}

type refundRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description" validate:"required"`
}

// CreateRefund records an operator-triggered refund or reversal. A gateway
// failure is reported but already noted on the order by the ledger.
func (h *PaymentHandler) CreateRefund(c *fiber.Ctx) error {
	orderID := c.Params("orderId")

	var req refundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var refunds []models.Refund
	err := h.Store.Transaction(func(tx store.OrderStore) error {
		order, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}

		if req.Amount != nil {
			remaining, err := reconcile.RemainingRefundable(order)
			if err != nil {
				return err
			}
			if req.Amount.GreaterThan(remaining) {
				return fiber.NewError(fiber.StatusUnprocessableEntity,
					fmt.Sprintf("amount exceeds refundable remainder of %s", remaining.StringFixed(2)))
			}
		}

		refunds, err = reconcile.RecordRefundAttempt(h.Gateway, order, req.Amount, req.Description)
		if err != nil {
			return err
		}
		return tx.Save(order)
	})
	if err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}
		if errors.Is(err, store.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record refund"})
	}

	if refunds == nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Refund attempt failed at the gateway"})
	}
	return c.JSON(fiber.Map{"refunds": refunds})
}

// CancelPayment voids an unresolved payment at the gateway and immediately
// reconciles the order against the new state.
func (h *PaymentHandler) CancelPayment(c *fiber.Ctx) error {
	orderID := c.Params("orderId")

	order, err := h.Store.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	if order.Status != models.OrderStatusCreated {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Order is already resolved"})
	}

	if _, err := h.Gateway.Cancel(order.TransactionReference); err != nil {
		log.Printf("🔥 Cancel failed for order %s: %v", order.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to cancel payment"})
	}

	err = h.Store.Transaction(func(tx store.OrderStore) error {
		current, err := tx.GetOrder(orderID)
		if err != nil {
			return err
		}
		verdict := reconcile.Resolve(h.Gateway, current, "cancel")
		return h.Dispatcher.Dispatch(tx, current, verdict)
	})
	if err != nil {
		log.Printf("Reconciliation after cancel failed for order %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Cancelled, reconciliation pending"})
	}

	return c.JSON(fiber.Map{"status": "cancelled"})
}
