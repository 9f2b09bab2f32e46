package controller

import (
	"fmt"
	"log"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"momentum/middleware"
	"momentum/models"
	"momentum/utils"
)

type WorkspaceController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewWorkspaceController(db *gorm.DB, logger *log.Logger) *WorkspaceController {
	return &WorkspaceController{DB: db, Logger: logger}
}

type CreateWorkspaceRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
	Slug string `json:"slug" validate:"omitempty,min=1,max=100"`
}

type UpdateWorkspaceRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=255"`
	Icon *string `json:"icon"`
}

type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin member"`
}

// GetWorkspaces lists the caller's workspaces with their role in each.
func (wc *WorkspaceController) GetWorkspaces(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var memberships []models.WorkspaceMember
	if err := wc.DB.Preload("Workspace").Where("user_id = ?", user.ID).Find(&memberships).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch workspaces",
		})
	}

	out := make([]fiber.Map, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, fiber.Map{
			"workspace": m.Workspace,
			"role":      m.Role,
		})
	}
	return c.JSON(fiber.Map{"workspaces": out})
}

func (wc *WorkspaceController) GetWorkspace(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)

	var workspace models.Workspace
	if err := wc.DB.First(&workspace, member.WorkspaceID).Error; err != nil {
		return middleware.NotFound(c)
	}

	return c.JSON(fiber.Map{
		"workspace": workspace,
		"role":      member.Role,
	})
}

// CreateWorkspace creates a workspace with the caller as owner, plus the
// default labels and starter project every workspace begins with.
func (wc *WorkspaceController) CreateWorkspace(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateWorkspaceRequest
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

	slug := req.Slug
	if slug == "" {
		slug = models.SlugifyWorkspaceName(req.Name)
	}

	var workspace models.Workspace
	err := wc.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Workspace{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("slug taken")
		}

		workspace = models.Workspace{
			Name:    req.Name,
			Slug:    slug,
			OwnerID: user.ID,
		}
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}

		member := models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      user.ID,
			Role:        models.RoleOwner,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		labels := models.DefaultLabels(workspace.ID)
		if err := tx.Create(&labels).Error; err != nil {
			return err
		}

		project := models.Project{
			WorkspaceID: workspace.ID,
			Name:        "My Project",
			Key:         models.DefaultProjectKey,
			Description: "Your first project",
		}
		return tx.Create(&project).Error
	})
	if err != nil {
		if err.Error() == "slug taken" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Workspace slug is already in use",
			})
		}
		wc.Logger.Printf("Failed to create workspace: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create workspace",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"workspace": workspace})
}

// UpdateWorkspace renames a workspace or changes its icon. Routes guard
// this with the settings-role middleware.
func (wc *WorkspaceController) UpdateWorkspace(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)

	var req UpdateWorkspaceRequest
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

	var workspace models.Workspace
	if err := wc.DB.First(&workspace, member.WorkspaceID).Error; err != nil {
		return middleware.NotFound(c)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if len(updates) > 0 {
		if err := wc.DB.Model(&workspace).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update workspace",
			})
		}
	}

	return c.JSON(fiber.Map{"workspace": workspace})
}

// GetWorkspaceMembers lists members with display info for assignee pickers.
func (wc *WorkspaceController) GetWorkspaceMembers(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)

	var members []models.WorkspaceMember
	if err := wc.DB.Preload("User").Where("workspace_id = ?", member.WorkspaceID).Find(&members).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch members",
		})
	}

	out := make([]fiber.Map, 0, len(members))
	for _, m := range members {
		out = append(out, fiber.Map{
			"id":       m.User.ID,
			"name":     m.User.Name,
			"email":    m.User.Email,
			"initials": m.User.Initials(),
			"role":     m.Role,
		})
	}
	return c.JSON(fiber.Map{"members": out})
}

// AddWorkspaceMember invites an existing account into the workspace.
func (wc *WorkspaceController) AddWorkspaceMember(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)

	var req AddMemberRequest
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
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email must be a valid email",
		})
	}

	role := req.Role
	if role == "" {
		role = models.RoleMember
	}

	var invitee models.User
	if err := wc.DB.Where("email = ?", req.Email).First(&invitee).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No account with that email",
		})
	}

	var existing models.WorkspaceMember
	if err := wc.DB.Where("workspace_id = ? AND user_id = ?", member.WorkspaceID, invitee.ID).
		First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "User is already a member",
		})
	}

	added := models.WorkspaceMember{
		WorkspaceID: member.WorkspaceID,
		UserID:      invitee.ID,
		Role:        role,
	}
	if err := wc.DB.Create(&added).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add member",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"member": added})
}

// RemoveWorkspaceMember removes a member. The workspace owner cannot be
// removed; every workspace keeps at least one owner.
func (wc *WorkspaceController) RemoveWorkspaceMember(c *fiber.Ctx) error {
	member := c.Locals("membership").(*models.WorkspaceMember)
	targetUserID := utils.ParseUint(c.Params("userID"))

	var target models.WorkspaceMember
	if err := wc.DB.Where("workspace_id = ? AND user_id = ?", member.WorkspaceID, targetUserID).
		First(&target).Error; err != nil {
		return middleware.NotFound(c)
	}

	if target.Role == models.RoleOwner {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The workspace owner cannot be removed",
		})
	}

	if err := wc.DB.Delete(&target).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove member",
		})
	}

	return c.JSON(fiber.Map{"message": "Member removed"})
}
