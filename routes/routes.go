package routes

import (
	"log"
	"os"

	controller "momentum/controllers"
	"momentum/events"
	"momentum/middleware"
	"momentum/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", controller.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, bus *events.Bus, webhookWorker *worker.WebhookWorker) {
	workspaceController := controller.NewWorkspaceController(db, log.New(os.Stdout, "WORKSPACE: ", log.LstdFlags))
	projectController := controller.NewProjectController(db, bus, log.New(os.Stdout, "PROJECT: ", log.LstdFlags))
	labelController := controller.NewLabelController(db, log.New(os.Stdout, "LABEL: ", log.LstdFlags))
	issueController := controller.NewIssueController(db, bus, log.New(os.Stdout, "ISSUE: ", log.LstdFlags))
	webhookController := controller.NewWebhookController(db, webhookWorker, log.New(os.Stdout, "WEBHOOK: ", log.LstdFlags))
	userController := controller.NewUserController(db, log.New(os.Stdout, "USER: ", log.LstdFlags))
	streamLogger := log.New(os.Stdout, "EVENTS: ", log.LstdFlags)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Workspace routes
	api.Get("/workspaces", workspaceController.GetWorkspaces)
	api.Post("/workspaces", workspaceController.CreateWorkspace)

	workspace := api.Group("/workspaces/:workspaceID", middleware.RequireMembership())
	workspace.Get("/", workspaceController.GetWorkspace)
	workspace.Put("/", middleware.RequireSettingsRole(), workspaceController.UpdateWorkspace)
	workspace.Get("/members", workspaceController.GetWorkspaceMembers)
	workspace.Post("/members", middleware.RequireSettingsRole(), workspaceController.AddWorkspaceMember)
	workspace.Delete("/members/:userID", middleware.RequireSettingsRole(), workspaceController.RemoveWorkspaceMember)

	// Webhook config routes (settings role required)
	webhook := workspace.Group("/webhook", middleware.RequireSettingsRole())
	webhook.Get("/", webhookController.GetWebhook)
	webhook.Put("/", webhookController.SaveWebhook)
	webhook.Delete("/", webhookController.DeleteWebhook)
	webhook.Post("/test", middleware.WebhookTestRateLimiter(), webhookController.TestWebhook)

	// WebSocket route for workspace lifecycle events
	workspace.Get("/events", websocket.New(controller.StreamEvents(bus, streamLogger)))

	// Project routes
	project := api.Group("/projects")
	project.Post("/", projectController.CreateProject)
	project.Get("/", projectController.GetProjects)
	project.Get("/:id", projectController.GetProject)
	project.Put("/:id", projectController.UpdateProject)
	project.Delete("/:id", projectController.DeleteProject)

	// Label routes
	label := api.Group("/labels")
	label.Post("/", labelController.CreateLabel)
	label.Get("/", labelController.GetLabels)
	label.Put("/:id", labelController.UpdateLabel)
	label.Delete("/:id", labelController.DeleteLabel)

	// Issue routes
	issue := api.Group("/issues")
	issue.Post("/", issueController.CreateIssue)
	issue.Get("/", issueController.GetIssues)
	issue.Get("/:id", issueController.GetIssue)
	issue.Put("/:id", issueController.UpdateIssue)
	issue.Delete("/:id", issueController.DeleteIssue)

	// User and view routes
	api.Get("/users", userController.GetUsers)
	api.Get("/views", userController.GetViews)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, bus *events.Bus, webhookWorker *worker.WebhookWorker) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app)

	// Setup API routes
	SetupAPIRoutes(app, db, bus, webhookWorker)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
