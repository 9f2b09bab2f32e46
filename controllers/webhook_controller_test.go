package controller

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"

	"momentum/models"
	"momentum/utils"
)

func TestWebhookConfigLifecycle(t *testing.T) {
	app, db, _ := newTestApp(t)
	owner, ownerToken := seedUser(t, db, "owner@example.com", "Owner")
	workspace := seedWorkspace(t, db, owner, "acme")
	url := fmt.Sprintf("/api/v1/workspaces/%d/webhook/", workspace.ID)

	// Nothing configured yet.
	resp := doJSON(t, app, http.MethodGet, url, ownerToken, nil)
	wantStatus(t, resp, http.StatusOK)
	var empty struct {
		Webhook *models.Webhook `json:"webhook"`
	}
	decodeBody(t, resp, &empty)
	if empty.Webhook != nil {
		t.Error("expected null webhook before configuration")
	}

	resp = doJSON(t, app, http.MethodPut, url, ownerToken, fiber.Map{
		"url":    "https://hooks.example.com/momentum",
		"secret": "whsec_test",
		"events": []string{models.EventIssueCreated, models.EventIssueDeleted},
	})
	wantStatus(t, resp, http.StatusOK)

	// Saving again replaces rather than duplicates.
	resp = doJSON(t, app, http.MethodPut, url, ownerToken, fiber.Map{
		"url":    "https://hooks.example.com/momentum-v2",
		"events": []string{models.EventProjectDeleted},
	})
	wantStatus(t, resp, http.StatusOK)

	var count int64
	db.Model(&models.Webhook{}).Where("workspace_id = ?", workspace.ID).Count(&count)
	if count != 1 {
		t.Fatalf("webhook rows = %d, want 1", count)
	}
	var saved models.Webhook
	if err := db.Where("workspace_id = ?", workspace.ID).First(&saved).Error; err != nil {
		t.Fatal(err)
	}
	if saved.URL != "https://hooks.example.com/momentum-v2" {
		t.Errorf("url = %q", saved.URL)
	}
	if !saved.Subscribed(models.EventProjectDeleted) || saved.Subscribed(models.EventIssueCreated) {
		t.Errorf("events = %q, want project.deleted only", saved.Events)
	}

	resp = doJSON(t, app, http.MethodDelete, url, ownerToken, nil)
	wantStatus(t, resp, http.StatusOK)
	db.Model(&models.Webhook{}).Where("workspace_id = ?", workspace.ID).Count(&count)
	if count != 0 {
		t.Error("webhook should be gone after delete")
	}
}

func TestSaveWebhookDisabledOnCreate(t *testing.T) {
	app, db, _ := newTestApp(t)
	owner, ownerToken := seedUser(t, db, "owner@example.com", "Owner")
	workspace := seedWorkspace(t, db, owner, "acme")
	url := fmt.Sprintf("/api/v1/workspaces/%d/webhook/", workspace.ID)

	// A config created disabled must land in the database disabled, not
	// flip to the column default.
	resp := doJSON(t, app, http.MethodPut, url, ownerToken, fiber.Map{
		"url":     "https://hooks.example.com/momentum",
		"enabled": false,
		"events":  []string{models.EventIssueCreated},
	})
	wantStatus(t, resp, http.StatusOK)

	var saved models.Webhook
	if err := db.Where("workspace_id = ?", workspace.ID).First(&saved).Error; err != nil {
		t.Fatal(err)
	}
	if saved.Enabled {
		t.Error("webhook created with enabled=false was stored enabled")
	}

	// Omitting enabled on save defaults to on.
	resp = doJSON(t, app, http.MethodDelete, url, ownerToken, nil)
	wantStatus(t, resp, http.StatusOK)
	resp = doJSON(t, app, http.MethodPut, url, ownerToken, fiber.Map{
		"url":    "https://hooks.example.com/momentum",
		"events": []string{models.EventIssueCreated},
	})
	wantStatus(t, resp, http.StatusOK)
	saved = models.Webhook{}
	if err := db.Where("workspace_id = ?", workspace.ID).First(&saved).Error; err != nil {
		t.Fatal(err)
	}
	if !saved.Enabled {
		t.Error("webhook saved without the enabled flag should default to enabled")
	}
}

func TestSaveWebhookValidation(t *testing.T) {
	app, db, _ := newTestApp(t)
	owner, ownerToken := seedUser(t, db, "owner@example.com", "Owner")
	workspace := seedWorkspace(t, db, owner, "acme")
	url := fmt.Sprintf("/api/v1/workspaces/%d/webhook/", workspace.ID)

	// Not a URL.
	resp := doJSON(t, app, http.MethodPut, url, ownerToken, fiber.Map{
		"url":    "not a url",
		"events": []string{models.EventIssueCreated},
	})
	wantStatus(t, resp, http.StatusBadRequest)

	// Empty event list.
	resp = doJSON(t, app, http.MethodPut, url, ownerToken, fiber.Map{
		"url":    "https://hooks.example.com/momentum",
		"events": []string{},
	})
	wantStatus(t, resp, http.StatusBadRequest)

	// Unknown event name.
	resp = doJSON(t, app, http.MethodPut, url, ownerToken, fiber.Map{
		"url":    "https://hooks.example.com/momentum",
		"events": []string{"label.created"},
	})
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestWebhookConfigRequiresSettingsRole(t *testing.T) {
	app, db, _ := newTestApp(t)
	owner, _ := seedUser(t, db, "owner@example.com", "Owner")
	workspace := seedWorkspace(t, db, owner, "acme")

	plain, plainToken := seedUser(t, db, "member@example.com", "Member")
	seedMember(t, db, workspace.ID, plain.ID, models.RoleMember)

	url := fmt.Sprintf("/api/v1/workspaces/%d/webhook/", workspace.ID)
	resp := doJSON(t, app, http.MethodGet, url, plainToken, nil)
	wantStatus(t, resp, http.StatusForbidden)
}

func TestTestWebhookEndpoint(t *testing.T) {
	app, db, _ := newTestApp(t)
	owner, ownerToken := seedUser(t, db, "owner@example.com", "Owner")
	workspace := seedWorkspace(t, db, owner, "acme")

	var hits int32
	var body []byte
	var signature string
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		body, _ = io.ReadAll(r.Body)
		signature = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	webhook := models.Webhook{WorkspaceID: workspace.ID, URL: receiver.URL, Secret: "whsec_test", Enabled: true}
	webhook.SetEvents([]string{models.EventIssueCreated})
	if err := db.Create(&webhook).Error; err != nil {
		t.Fatal(err)
	}

	url := fmt.Sprintf("/api/v1/workspaces/%d/webhook/test", workspace.ID)
	resp := doJSON(t, app, http.MethodPost, url, ownerToken, nil)
	wantStatus(t, resp, http.StatusOK)

	var out struct {
		Success bool `json:"success"`
		Status  int  `json:"status"`
	}
	decodeBody(t, resp, &out)
	if !out.Success || out.Status != http.StatusOK {
		t.Errorf("test delivery: success=%t status=%d", out.Success, out.Status)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("receiver hits = %d, want 1", hits)
	}
	if !utils.VerifySignature("whsec_test", body, signature) {
		t.Error("test delivery should carry a valid signature")
	}
}

func TestTestWebhookWithoutConfig(t *testing.T) {
	app, db, _ := newTestApp(t)
	owner, ownerToken := seedUser(t, db, "owner@example.com", "Owner")
	workspace := seedWorkspace(t, db, owner, "acme")

	url := fmt.Sprintf("/api/v1/workspaces/%d/webhook/test", workspace.ID)
	resp := doJSON(t, app, http.MethodPost, url, ownerToken, nil)
	wantStatus(t, resp, http.StatusOK)

	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decodeBody(t, resp, &out)
	if out.Success {
		t.Error("test without a configured webhook must report failure")
	}
	if out.Error == "" {
		t.Error("failure must carry an error message")
	}
}
