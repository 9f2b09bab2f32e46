package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"momentum/middleware"
	"momentum/models"
	"momentum/utils"
)

type LabelController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewLabelController(db *gorm.DB, logger *log.Logger) *LabelController {
	return &LabelController{DB: db, Logger: logger}
}

type CreateLabelRequest struct {
	WorkspaceID uint   `json:"workspace_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Color       string `json:"color" validate:"required,hexcolor"`
}

type UpdateLabelRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

// resolveLabel loads a label and verifies membership; the handler turns
// any error into the generic not-found response.
func (lc *LabelController) resolveLabel(c *fiber.Ctx, labelID uint) (*models.Label, error) {
	var label models.Label
	if err := lc.DB.First(&label, labelID).Error; err != nil {
		return nil, err
	}

	user := c.Locals("user").(*models.User)
	if _, err := middleware.MembershipFor(user.ID, label.WorkspaceID); err != nil {
		return nil, err
	}
	return &label, nil
}

// GetLabels lists labels across the caller's workspaces, ordered by name.
func (lc *LabelController) GetLabels(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceIDs, err := middleware.UserWorkspaceIDs(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch labels",
		})
	}
	if len(workspaceIDs) == 0 {
		return c.JSON(fiber.Map{"labels": []models.Label{}})
	}

	query := lc.DB.Where("workspace_id IN ?", workspaceIDs)
	if raw := c.Query("workspace_id"); raw != "" {
		query = query.Where("workspace_id = ?", utils.ParseUint(raw))
	}

	var labels []models.Label
	if err := query.Order("name asc").Find(&labels).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch labels",
		})
	}
	return c.JSON(fiber.Map{"labels": labels})
}

func (lc *LabelController) CreateLabel(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateLabelRequest
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

	if _, err := middleware.MembershipFor(user.ID, req.WorkspaceID); err != nil {
		return middleware.NotFound(c)
	}

	label := models.Label{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Color:       req.Color,
	}
	if err := lc.DB.Create(&label).Error; err != nil {
		lc.Logger.Printf("Failed to create label: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create label",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"label": label})
}

func (lc *LabelController) UpdateLabel(c *fiber.Ctx) error {
	label, err := lc.resolveLabel(c, utils.ParseUint(c.Params("id")))
	if err != nil {
		return middleware.NotFound(c)
	}

	var req UpdateLabelRequest
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

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if len(updates) > 0 {
		if err := lc.DB.Model(label).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update label",
			})
		}
	}

	return c.JSON(fiber.Map{"label": label})
}

// DeleteLabel removes the label and its issue associations; the issues
// themselves are untouched.
func (lc *LabelController) DeleteLabel(c *fiber.Ctx) error {
	label, err := lc.resolveLabel(c, utils.ParseUint(c.Params("id")))
	if err != nil {
		return middleware.NotFound(c)
	}

	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("label_id = ?", label.ID).Delete(&models.IssueLabel{}).Error; err != nil {
			return err
		}
		return tx.Delete(label).Error
	})
	if err != nil {
		lc.Logger.Printf("Failed to delete label %d: %v", label.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete label",
		})
	}

	return c.JSON(fiber.Map{"message": "Label deleted successfully"})
}
