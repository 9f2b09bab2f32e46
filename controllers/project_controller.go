package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"momentum/events"
	"momentum/middleware"
	"momentum/models"
	"momentum/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Bus    *events.Bus
	Logger *log.Logger
}

func NewProjectController(db *gorm.DB, bus *events.Bus, logger *log.Logger) *ProjectController {
	return &ProjectController{DB: db, Bus: bus, Logger: logger}
}

type CreateProjectRequest struct {
	WorkspaceID uint   `json:"workspace_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Description string `json:"description"`
	LeadID      *uint  `json:"lead_id"`
}

type UpdateProjectRequest struct {
	Name        *string              `json:"name" validate:"omitempty,min=1,max=255"`
	Color       *string              `json:"color" validate:"omitempty,hexcolor"`
	Description *string              `json:"description"`
	LeadID      utils.Optional[uint] `json:"lead_id"`
}

// resolveProject loads a project and verifies the caller belongs to its
// workspace. Any failure is an error the handler must translate into the
// generic not-found response, keeping missing and inaccessible projects
// indistinguishable.
func (pc *ProjectController) resolveProject(c *fiber.Ctx, projectID uint) (*models.Project, *models.WorkspaceMember, error) {
	var project models.Project
	if err := pc.DB.First(&project, projectID).Error; err != nil {
		return nil, nil, err
	}

	user := c.Locals("user").(*models.User)
	member, err := middleware.MembershipFor(user.ID, project.WorkspaceID)
	if err != nil {
		return nil, nil, err
	}
	return &project, member, nil
}

// GetProjects lists projects across the caller's workspaces, optionally
// narrowed to one workspace, ordered by name.
func (pc *ProjectController) GetProjects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceIDs, err := middleware.UserWorkspaceIDs(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch projects",
		})
	}
	if len(workspaceIDs) == 0 {
		return c.JSON(fiber.Map{"projects": []models.Project{}})
	}

	query := pc.DB.Where("workspace_id IN ?", workspaceIDs)
	if raw := c.Query("workspace_id"); raw != "" {
		query = query.Where("workspace_id = ?", utils.ParseUint(raw))
	}

	var projects []models.Project
	if err := query.Preload("Lead").Order("name asc").Find(&projects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch projects",
		})
	}
	return c.JSON(fiber.Map{"projects": projects})
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	project, _, err := pc.resolveProject(c, utils.ParseUint(c.Params("id")))
	if err != nil {
		return middleware.NotFound(c)
	}
	return c.JSON(fiber.Map{"project": project})
}

// CreateProject derives the short key from the name; the key is fixed for
// the project's lifetime and later renames never regenerate it.
func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateProjectRequest
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

	project := models.Project{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Key:         models.DeriveProjectKey(req.Name),
		Description: req.Description,
		LeadID:      req.LeadID,
	}
	if req.Color != "" {
		project.Color = req.Color
	}

	if err := pc.DB.Create(&project).Error; err != nil {
		pc.Logger.Printf("Failed to create project: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create project",
		})
	}

	pc.Bus.Publish(events.Event{
		WorkspaceID: project.WorkspaceID,
		Name:        models.EventProjectCreated,
		Data:        events.Payload{Action: "created", Resource: project},
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"project": project})
}

func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	project, _, err := pc.resolveProject(c, utils.ParseUint(c.Params("id")))
	if err != nil {
		return middleware.NotFound(c)
	}

	var req UpdateProjectRequest
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

	before := *project

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.LeadID.Set {
		if req.LeadID.Value == nil {
			updates["lead_id"] = nil
		} else {
			updates["lead_id"] = *req.LeadID.Value
		}
	}

	if len(updates) > 0 {
		if err := pc.DB.Model(project).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update project",
			})
		}
	}

	changes := map[string]models.FieldChange{}
	if req.Name != nil && before.Name != project.Name {
		changes["name"] = models.FieldChange{Old: before.Name, New: project.Name}
	}
	if req.Color != nil && before.Color != project.Color {
		changes["color"] = models.FieldChange{Old: before.Color, New: project.Color}
	}
	if req.Description != nil && before.Description != project.Description {
		changes["description"] = models.FieldChange{Old: before.Description, New: project.Description}
	}
	if len(changes) == 0 {
		changes = nil
	}

	pc.Bus.Publish(events.Event{
		WorkspaceID: project.WorkspaceID,
		Name:        models.EventProjectUpdated,
		Data:        events.Payload{Action: "updated", Resource: project, Changes: changes},
	})

	return c.JSON(fiber.Map{"project": project})
}

// DeleteProject removes the project and, through the schema's cascades,
// its issues and their label associations.
func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	project, _, err := pc.resolveProject(c, utils.ParseUint(c.Params("id")))
	if err != nil {
		return middleware.NotFound(c)
	}

	snapshot := *project

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		var issueIDs []uint
		if err := tx.Model(&models.Issue{}).Where("project_id = ?", project.ID).
			Pluck("id", &issueIDs).Error; err != nil {
			return err
		}
		if len(issueIDs) > 0 {
			if err := tx.Unscoped().Where("issue_id IN ?", issueIDs).Delete(&models.IssueLabel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", project.ID).Delete(&models.Issue{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		pc.Logger.Printf("Failed to delete project %d: %v", project.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete project",
		})
	}

	pc.Bus.Publish(events.Event{
		WorkspaceID: snapshot.WorkspaceID,
		Name:        models.EventProjectDeleted,
		Data:        events.Payload{Action: "deleted", Resource: snapshot},
	})

	return c.JSON(fiber.Map{"message": "Project deleted successfully"})
}
