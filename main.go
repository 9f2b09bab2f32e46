package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"momentum/config"
	"momentum/events"
	"momentum/routes"
	"momentum/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "MOMENTUM: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Sentry when a DSN is configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Fatalf("Failed to initialize Sentry: %v", err)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(cors.New())

	// Initialize the event bus and start the webhook delivery worker
	bus := events.NewBus(config.AppConfig.WebhookQueueSize)
	webhookWorker := worker.NewWebhookWorker(config.DB, config.AppConfig.WebhookTimeout)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go webhookWorker.Start(ctx, bus)

	// Setup routes
	routes.SetupRoutes(app, config.DB, bus, webhookWorker)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
