package controller

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"momentum/models"
)

func TestRegisterBootstrapsWorkspace(t *testing.T) {
	app, db, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/auth/register", "", fiber.Map{
		"email":    "ada@example.com",
		"password": "correct-horse",
		"name":     "Ada Lovelace",
	})
	wantStatus(t, resp, http.StatusCreated)

	var out AuthResponse
	decodeBody(t, resp, &out)
	if out.AccessToken == "" || out.RefreshToken == "" {
		t.Fatal("registration must return both tokens")
	}

	var workspace models.Workspace
	if err := db.Where("owner_id = ?", out.User.ID).First(&workspace).Error; err != nil {
		t.Fatalf("no bootstrapped workspace: %v", err)
	}
	if workspace.Name != "Ada Lovelace's Workspace" {
		t.Errorf("workspace name = %q", workspace.Name)
	}
	if workspace.Slug != "ada-lovelace-s-workspace" {
		t.Errorf("workspace slug = %q", workspace.Slug)
	}

	var member models.WorkspaceMember
	if err := db.Where("workspace_id = ? AND user_id = ?", workspace.ID, out.User.ID).
		First(&member).Error; err != nil {
		t.Fatalf("owner has no membership row: %v", err)
	}
	if member.Role != models.RoleOwner {
		t.Errorf("bootstrap role = %q, want owner", member.Role)
	}

	var labelCount int64
	db.Model(&models.Label{}).Where("workspace_id = ?", workspace.ID).Count(&labelCount)
	if labelCount != 3 {
		t.Errorf("default labels = %d, want 3", labelCount)
	}

	var project models.Project
	if err := db.Where("workspace_id = ?", workspace.ID).First(&project).Error; err != nil {
		t.Fatalf("no starter project: %v", err)
	}
	if project.Key != models.DefaultProjectKey {
		t.Errorf("starter project key = %q, want %q", project.Key, models.DefaultProjectKey)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app, _, _ := newTestApp(t)

	body := fiber.Map{"email": "ada@example.com", "password": "correct-horse", "name": "Ada"}
	wantStatus(t, doJSON(t, app, http.MethodPost, "/auth/register", "", body), http.StatusCreated)
	wantStatus(t, doJSON(t, app, http.MethodPost, "/auth/register", "", body), http.StatusConflict)
}

func TestLoginAndMe(t *testing.T) {
	app, _, _ := newTestApp(t)

	wantStatus(t, doJSON(t, app, http.MethodPost, "/auth/register", "", fiber.Map{
		"email": "ada@example.com", "password": "correct-horse", "name": "Ada Lovelace",
	}), http.StatusCreated)

	resp := doJSON(t, app, http.MethodPost, "/auth/login", "", fiber.Map{
		"email": "ada@example.com", "password": "correct-horse",
	})
	wantStatus(t, resp, http.StatusOK)
	var out AuthResponse
	decodeBody(t, resp, &out)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/auth/me", out.AccessToken, nil)
	wantStatus(t, resp, http.StatusOK)
	var me struct {
		User     models.User `json:"user"`
		Initials string      `json:"initials"`
	}
	decodeBody(t, resp, &me)
	if me.User.Email != "ada@example.com" {
		t.Errorf("me.email = %q", me.User.Email)
	}
	if me.Initials != "AL" {
		t.Errorf("initials = %q, want AL", me.Initials)
	}

	resp = doJSON(t, app, http.MethodPost, "/auth/login", "", fiber.Map{
		"email": "ada@example.com", "password": "wrong",
	})
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/auth/register", "", fiber.Map{
		"email": "ada@example.com", "password": "correct-horse", "name": "Ada",
	})
	wantStatus(t, resp, http.StatusCreated)
	var registered AuthResponse
	decodeBody(t, resp, &registered)

	resp = doJSON(t, app, http.MethodPost, "/auth/refresh", "", fiber.Map{
		"refresh_token": registered.RefreshToken,
	})
	wantStatus(t, resp, http.StatusOK)
	var refreshed map[string]string
	decodeBody(t, resp, &refreshed)
	if refreshed["access_token"] == "" {
		t.Error("refresh must return a new access token")
	}

	resp = doJSON(t, app, http.MethodPost, "/auth/refresh", "", fiber.Map{
		"refresh_token": "garbage",
	})
	wantStatus(t, resp, http.StatusUnauthorized)
}
