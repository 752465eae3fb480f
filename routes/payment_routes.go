package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmulders/ccv_reconciler/handlers"
	"github.com/jmulders/ccv_reconciler/middleware"
)

func PaymentRoutes(app *fiber.App, h *handlers.PaymentHandler) {
	api := app.Group("/api/v1")

	api.Post("/payments/webhook", h.HandleWebhook)

	orders := api.Group("/orders", middleware.Protected())
	orders.Post("/:orderId/payment", h.InitiatePayment)
	orders.Post("/:orderId/refund", middleware.AdminRequired(), h.CreateRefund)
	orders.Post("/:orderId/cancel", middleware.AdminRequired(), h.CancelPayment)
}
