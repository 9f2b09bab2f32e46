package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"momentum/models"
	"momentum/utils"
	"momentum/worker"
)

type WebhookController struct {
	DB     *gorm.DB
	Worker *worker.WebhookWorker
	Logger *log.Logger
}

func NewWebhookController(db *gorm.DB, ww *worker.WebhookWorker, logger *log.Logger) *WebhookController {
	return &WebhookController{DB: db, Worker: ww, Logger: logger}
}

type SaveWebhookRequest struct {
	URL     string   `json:"url" validate:"required,url"`
	Secret  string   `json:"secret"`
	Enabled *bool    `json:"enabled"`
	Events  []string `json:"events" validate:"required,min=1"`
}

// GetWebhook returns the workspace's webhook config, or null when none is
// configured. Routes gate this behind the settings-role middleware.
func (wc *WebhookController) GetWebhook(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)

	var webhook models.Webhook
	if err := wc.DB.Where("workspace_id = ?", member.WorkspaceID).First(&webhook).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(fiber.Map{"webhook": nil})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch webhook",
		})
	}

	return c.JSON(fiber.Map{
		"webhook":    webhook,
		"events":     webhook.EventList(),
		"has_secret": webhook.Secret != "",
	})
}

// SaveWebhook creates or replaces the workspace's single webhook config.
func (wc *WebhookController) SaveWebhook(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)

	var req SaveWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	for _, event := range req.Events {
		if !models.ValidWebhookEvent(event) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "events contains an unknown event: " + event,
			})
		}
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	var webhook models.Webhook
	err := wc.DB.Where("workspace_id = ?", member.WorkspaceID).First(&webhook).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		webhook = models.Webhook{
			WorkspaceID: member.WorkspaceID,
			URL:         req.URL,
			Secret:      req.Secret,
			Enabled:     enabled,
		}
		webhook.SetEvents(req.Events)
		err = wc.DB.Create(&webhook).Error
	case err == nil:
		webhook.URL = req.URL
		webhook.Secret = req.Secret
		webhook.Enabled = enabled
		webhook.SetEvents(req.Events)
		err = wc.DB.Save(&webhook).Error
	}
	if err != nil {
		wc.Logger.Printf("Failed to save webhook for workspace %d: %v", member.WorkspaceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save webhook",
		})
	}

	return c.JSON(fiber.Map{
		"webhook": webhook,
		"events":  webhook.EventList(),
	})
}

func (wc *WebhookController) DeleteWebhook(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)

	// Hard delete: a soft-deleted row would hold the workspace_id unique
	// index and block configuring a new webhook later.
	if err := wc.DB.Unscoped().Where("workspace_id = ?", member.WorkspaceID).Delete(&models.Webhook{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete webhook",
		})
	}
	return c.JSON(fiber.Map{"message": "Webhook deleted successfully"})
}

// TestWebhook performs the one synchronous delivery: a fixed "test" event
// so the endpoint can be verified from the settings UI.
func (wc *WebhookController) TestWebhook(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)

	status, err := wc.Worker.SendTest(member.WorkspaceID)
	if err != nil {
		return c.JSON(fiber.Map{
			"success": false,
			"status":  status,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"status":  status,
	})
}
