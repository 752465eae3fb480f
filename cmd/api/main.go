package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"

	config "github.com/jmulders/ccv_reconciler/configs"
	"github.com/jmulders/ccv_reconciler/database"
	"github.com/jmulders/ccv_reconciler/gateway"
	"github.com/jmulders/ccv_reconciler/handlers"
	"github.com/jmulders/ccv_reconciler/jobs"
	"github.com/jmulders/ccv_reconciler/notifications"
	"github.com/jmulders/ccv_reconciler/reconcile"
	"github.com/jmulders/ccv_reconciler/routes"
	"github.com/jmulders/ccv_reconciler/store"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	notifications.InitEmailService()

	settings := config.Load()
	orderStore := store.NewGormStore(database.DB)
	ccv := gateway.NewClient(settings)
	dispatcher := &reconcile.Dispatcher{
		Gateway:  ccv,
		Settings: settings,
		Hooks:    notifications.EmailHooks{},
	}

	c := cron.New()
	c.AddFunc("*/5 * * * *", func() {
		if err := jobs.CheckPendingAuthorizations(orderStore, ccv, dispatcher); err != nil {
			log.Printf("🔥 Authorization poll finished with errors: %v", err)
		}
	})
	c.AddFunc("*/15 * * * *", func() {
		if err := jobs.RefreshPendingRefunds(orderStore, ccv); err != nil {
			log.Printf("🔥 Refund poll finished with errors: %v", err)
		}
	})
	go c.Start()
	log.Println("✅ Reconciliation poll jobs scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:       "CCV Reconciler",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  15 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New())
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	paymentHandler := &handlers.PaymentHandler{
		Store:      orderStore,
		Gateway:    ccv,
		Dispatcher: dispatcher,
	}
	routes.PaymentRoutes(app, paymentHandler)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	if err := app.Listen(":8080"); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
