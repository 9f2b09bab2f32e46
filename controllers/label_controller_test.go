package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"momentum/models"
)

func TestMissingLabelReturnsNotFound(t *testing.T) {
	app, db, _ := newTestApp(t)
	user, token := seedUser(t, db, "ada@example.com", "Ada")
	seedWorkspace(t, db, user, "acme")

	for _, probe := range []struct {
		method string
		body   interface{}
	}{
		{http.MethodPut, fiber.Map{"name": "ghost"}},
		{http.MethodDelete, nil},
	} {
		resp := doJSON(t, app, probe.method, "/api/v1/labels/999999", token, probe.body)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s missing label: status %d, want 404", probe.method, resp.StatusCode)
			continue
		}
		var body map[string]string
		decodeBody(t, resp, &body)
		if body["error"] != "Not found" {
			t.Errorf("%s missing label: error = %q", probe.method, body["error"])
		}
	}
}

func TestLabelHiddenFromNonMembers(t *testing.T) {
	app, db, _ := newTestApp(t)
	owner, _ := seedUser(t, db, "owner@example.com", "Owner")
	workspace := seedWorkspace(t, db, owner, "acme")

	label := models.Label{WorkspaceID: workspace.ID, Name: "Secret", Color: "#FF708C"}
	if err := db.Create(&label).Error; err != nil {
		t.Fatal(err)
	}

	_, outsiderToken := seedUser(t, db, "mallory@example.com", "Mallory")
	url := fmt.Sprintf("/api/v1/labels/%d", label.ID)

	resp := doJSON(t, app, http.MethodPut, url, outsiderToken, fiber.Map{"name": "hijacked"})
	wantStatus(t, resp, http.StatusNotFound)

	resp = doJSON(t, app, http.MethodDelete, url, outsiderToken, nil)
	wantStatus(t, resp, http.StatusNotFound)

	var reloaded models.Label
	if err := db.First(&reloaded, label.ID).Error; err != nil {
		t.Fatalf("label should still exist: %v", err)
	}
	if reloaded.Name != "Secret" {
		t.Errorf("name = %q, want unchanged", reloaded.Name)
	}
}
