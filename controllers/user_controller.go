package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"momentum/middleware"
	"momentum/models"
)

type UserController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewUserController(db *gorm.DB, logger *log.Logger) *UserController {
	return &UserController{DB: db, Logger: logger}
}

// GetUsers returns every user visible to the caller: the deduplicated
// membership of all their workspaces.
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceIDs, err := middleware.UserWorkspaceIDs(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch users",
		})
	}
	if len(workspaceIDs) == 0 {
		return c.JSON(fiber.Map{"users": []fiber.Map{}})
	}

	var members []models.WorkspaceMember
	if err := uc.DB.Preload("User").Where("workspace_id IN ?", workspaceIDs).Find(&members).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch users",
		})
	}

	seen := make(map[uint]bool)
	out := make([]fiber.Map, 0, len(members))
	for _, m := range members {
		if seen[m.User.ID] {
			continue
		}
		seen[m.User.ID] = true
		out = append(out, fiber.Map{
			"id":       m.User.ID,
			"name":     m.User.Name,
			"email":    m.User.Email,
			"initials": m.User.Initials(),
		})
	}
	return c.JSON(fiber.Map{"users": out})
}

// GetViews returns the built-in view presets the issue list understands.
func (uc *UserController) GetViews(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"views": models.BuiltinViews()})
}
