package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"momentum/config"
	"momentum/events"
	"momentum/middleware"
	"momentum/models"
	"momentum/utils"
	"momentum/worker"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	// A single connection keeps every session on the same in-memory db and
	// serializes concurrent transactions.
	sqlDB.SetMaxOpenConns(1)

	if err := config.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// newTestApp wires the real route middleware around the controllers under
// test. The auth and membership layers read config.DB, so the global is
// pointed at the per-test database.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *events.Bus) {
	t.Helper()

	db := newTestDB(t)
	config.DB = db
	config.AppConfig.JWTSecret = "test-secret"

	bus := events.NewBus(64)
	quiet := log.New(io.Discard, "", 0)

	workspaceController := NewWorkspaceController(db, quiet)
	projectController := NewProjectController(db, bus, quiet)
	labelController := NewLabelController(db, quiet)
	issueController := NewIssueController(db, bus, quiet)
	webhookController := NewWebhookController(db, worker.NewWebhookWorker(db, 5*time.Second), quiet)
	userController := NewUserController(db, quiet)

	app := fiber.New()
	app.Post("/auth/register", Register)
	app.Post("/auth/login", Login)
	app.Post("/auth/refresh", RefreshToken)

	api := app.Group("/api/v1", middleware.Protected())
	api.Get("/auth/me", GetCurrentUser)

	api.Get("/workspaces", workspaceController.GetWorkspaces)
	api.Post("/workspaces", workspaceController.CreateWorkspace)
	workspace := api.Group("/workspaces/:workspaceID", middleware.RequireMembership())
	workspace.Get("/", workspaceController.GetWorkspace)
	workspace.Put("/", middleware.RequireSettingsRole(), workspaceController.UpdateWorkspace)
	workspace.Get("/members", workspaceController.GetWorkspaceMembers)
	workspace.Post("/members", middleware.RequireSettingsRole(), workspaceController.AddWorkspaceMember)
	workspace.Delete("/members/:userID", middleware.RequireSettingsRole(), workspaceController.RemoveWorkspaceMember)

	webhook := workspace.Group("/webhook", middleware.RequireSettingsRole())
	webhook.Get("/", webhookController.GetWebhook)
	webhook.Put("/", webhookController.SaveWebhook)
	webhook.Delete("/", webhookController.DeleteWebhook)
	webhook.Post("/test", webhookController.TestWebhook)

	project := api.Group("/projects")
	project.Post("/", projectController.CreateProject)
	project.Get("/", projectController.GetProjects)
	project.Get("/:id", projectController.GetProject)
	project.Put("/:id", projectController.UpdateProject)
	project.Delete("/:id", projectController.DeleteProject)

	label := api.Group("/labels")
	label.Post("/", labelController.CreateLabel)
	label.Get("/", labelController.GetLabels)
	label.Put("/:id", labelController.UpdateLabel)
	label.Delete("/:id", labelController.DeleteLabel)

	issue := api.Group("/issues")
	issue.Post("/", issueController.CreateIssue)
	issue.Get("/", issueController.GetIssues)
	issue.Get("/:id", issueController.GetIssue)
	issue.Put("/:id", issueController.UpdateIssue)
	issue.Delete("/:id", issueController.DeleteIssue)

	api.Get("/users", userController.GetUsers)
	api.Get("/views", userController.GetViews)

	return app, db, bus
}

func seedUser(t *testing.T, db *gorm.DB, email, name string) (*models.User, string) {
	t.Helper()

	user := models.User{
		Email:        email,
		PasswordHash: "not-used",
		Name:         name,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	token, _, err := utils.GenerateJWTToken(&user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return &user, token
}

func seedWorkspace(t *testing.T, db *gorm.DB, owner *models.User, slug string) *models.Workspace {
	t.Helper()

	workspace := models.Workspace{Name: slug, Slug: slug, OwnerID: owner.ID}
	if err := db.Create(&workspace).Error; err != nil {
		t.Fatalf("failed to seed workspace: %v", err)
	}
	member := models.WorkspaceMember{WorkspaceID: workspace.ID, UserID: owner.ID, Role: models.RoleOwner}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}
	return &workspace
}

func seedMember(t *testing.T, db *gorm.DB, workspaceID, userID uint, role string) {
	t.Helper()
	member := models.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: role}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}
}

func seedProject(t *testing.T, db *gorm.DB, workspaceID uint, name, key string) *models.Project {
	t.Helper()
	project := models.Project{WorkspaceID: workspaceID, Name: name, Key: key}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return &project
}

func doJSON(t *testing.T, app *fiber.App, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, want, body)
	}
}
