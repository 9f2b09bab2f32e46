package controller

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"momentum/events"
	"momentum/middleware"
	"momentum/models"
	"momentum/utils"
)

type IssueController struct {
	DB     *gorm.DB
	Bus    *events.Bus
	Logger *log.Logger
}

func NewIssueController(db *gorm.DB, bus *events.Bus, logger *log.Logger) *IssueController {
	return &IssueController{DB: db, Bus: bus, Logger: logger}
}

type CreateIssueRequest struct {
	ProjectID   uint                 `json:"project_id" validate:"required"`
	Title       string               `json:"title" validate:"required,min=1,max=500"`
	Description string               `json:"description"`
	Status      models.IssueStatus   `json:"status"`
	Priority    models.IssuePriority `json:"priority"`
	AssigneeID  *uint                `json:"assignee_id"`
	ParentID    *uint                `json:"parent_id"`
	Estimate    *int                 `json:"estimate"`
	DueDate     *time.Time           `json:"due_date"`
	LabelIDs    []uint               `json:"label_ids"`
}

// UpdateIssueRequest distinguishes absent fields from explicit nulls:
// `{"assignee_id": null}` clears the assignee, omitting the key leaves it
// untouched.
type UpdateIssueRequest struct {
	Title       *string                   `json:"title" validate:"omitempty,min=1,max=500"`
	Description *string                   `json:"description"`
	Status      *models.IssueStatus       `json:"status"`
	Priority    *models.IssuePriority     `json:"priority"`
	AssigneeID  utils.Optional[uint]      `json:"assignee_id"`
	Estimate    utils.Optional[int]       `json:"estimate"`
	DueDate     utils.Optional[time.Time] `json:"due_date"`
	LabelIDs    *[]uint                   `json:"label_ids"`
}

// resolveIssue loads an issue and verifies the caller belongs to the
// workspace of its project. Any failure is an error the handler must
// translate into the generic not-found response, so missing and
// inaccessible issues stay indistinguishable.
func (ic *IssueController) resolveIssue(c *fiber.Ctx, issueID uint) (*models.Issue, error) {
	var issue models.Issue
	if err := ic.DB.Preload("Project").First(&issue, issueID).Error; err != nil {
		return nil, err
	}

	user := c.Locals("user").(*models.User)
	if _, err := middleware.MembershipFor(user.ID, issue.Project.WorkspaceID); err != nil {
		return nil, err
	}
	return &issue, nil
}

// labelsInWorkspace reports whether every id names a label owned by the
// workspace. Label sets are always validated against the issue's own
// workspace so a request cannot attach another workspace's labels.
func (ic *IssueController) labelsInWorkspace(labelIDs []uint, workspaceID uint) bool {
	if len(labelIDs) == 0 {
		return true
	}
	var count int64
	err := ic.DB.Model(&models.Label{}).
		Where("id IN ? AND workspace_id = ?", labelIDs, workspaceID).
		Count(&count).Error
	return err == nil && count == int64(len(labelIDs))
}

// loadLabels fills the Labels slice for each issue from the junction rows.
func (ic *IssueController) loadLabels(issues []models.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	ids := make([]uint, len(issues))
	for i := range issues {
		ids[i] = issues[i].ID
		issues[i].Labels = []models.Label{}
	}

	type row struct {
		IssueID uint
		models.Label
	}
	var rows []row
	err := ic.DB.Table("issue_labels").
		Select("issue_labels.issue_id, labels.*").
		Joins("JOIN labels ON labels.id = issue_labels.label_id").
		Where("issue_labels.issue_id IN ? AND issue_labels.deleted_at IS NULL", ids).
		Scan(&rows).Error
	if err != nil {
		return err
	}

	byIssue := make(map[uint][]models.Label)
	for _, r := range rows {
		byIssue[r.IssueID] = append(byIssue[r.IssueID], r.Label)
	}
	for i := range issues {
		if labels, ok := byIssue[issues[i].ID]; ok {
			issues[i].Labels = labels
		}
	}
	return nil
}

// GetIssues returns the caller-visible issues after running the view and
// ad-hoc criteria through the filter engine. `?group=status` returns the
// six-bucket board partition instead of a flat list.
func (ic *IssueController) GetIssues(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	workspaceIDs, err := middleware.UserWorkspaceIDs(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch issues",
		})
	}
	if len(workspaceIDs) == 0 {
		return c.JSON(fiber.Map{"issues": []models.Issue{}})
	}

	var issues []models.Issue
	err = ic.DB.
		Joins("JOIN projects ON projects.id = issues.project_id").
		Where("projects.workspace_id IN ? AND projects.deleted_at IS NULL", workspaceIDs).
		Preload("Assignee").
		Order("issues.created_at desc").
		Find(&issues).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch issues",
		})
	}
	if err := ic.loadLabels(issues); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch issues",
		})
	}

	adhoc, err := parseIssueFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	effective := models.ResolveViewFilter(c.Query("view"), user.ID, adhoc)
	filtered := models.FilterIssues(issues, effective)

	if c.Query("group") == "status" {
		return c.JSON(fiber.Map{
			"groups": models.GroupByStatus(filtered),
			"total":  len(filtered),
		})
	}
	return c.JSON(fiber.Map{"issues": filtered})
}

// parseIssueFilter reads the ad-hoc criteria from the query string.
func parseIssueFilter(c *fiber.Ctx) (models.IssueFilter, error) {
	var filter models.IssueFilter

	for _, raw := range splitCSV(c.Query("status")) {
		status := models.IssueStatus(raw)
		if !status.Valid() {
			return filter, fmt.Errorf("status must be one of the known statuses")
		}
		filter.Status = append(filter.Status, status)
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		priority := models.IssuePriority(raw)
		if !priority.Valid() {
			return filter, fmt.Errorf("priority must be one of the known priorities")
		}
		filter.Priority = append(filter.Priority, priority)
	}
	if raw := c.Query("assignee_id"); raw != "" {
		filter.AssigneeID = utils.Pointer(utils.ParseUint(raw))
	}
	if raw := c.Query("project_id"); raw != "" {
		filter.ProjectID = utils.Pointer(utils.ParseUint(raw))
	}
	filter.Search = c.Query("search")
	return filter, nil
}

func (ic *IssueController) GetIssue(c *fiber.Ctx) error {
	issue, err := ic.resolveIssue(c, utils.ParseUint(c.Params("id")))
	if err != nil {
		return middleware.NotFound(c)
	}

	if err := ic.DB.Preload("Assignee").Preload("SubIssues").First(issue, issue.ID).Error; err != nil {
		return middleware.NotFound(c)
	}
	single := []models.Issue{*issue}
	if err := ic.loadLabels(single); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch issue",
		})
	}
	return c.JSON(fiber.Map{"issue": single[0]})
}

// CreateIssue allocates the next identifier and inserts the issue plus
// its label associations in one transaction, so concurrent creations in
// the same project can never collide on "KEY-N".
func (ic *IssueController) CreateIssue(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateIssueRequest
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

	status := req.Status
	if status == "" {
		status = models.StatusBacklog
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNone
	}
	if !status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "status must be one of the known statuses",
		})
	}
	if !priority.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "priority must be one of the known priorities",
		})
	}

	var project models.Project
	if err := ic.DB.First(&project, req.ProjectID).Error; err != nil {
		return middleware.NotFound(c)
	}
	if _, err := middleware.MembershipFor(user.ID, project.WorkspaceID); err != nil {
		return middleware.NotFound(c)
	}

	if !ic.labelsInWorkspace(req.LabelIDs, project.WorkspaceID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "label_ids must reference labels in the project's workspace",
		})
	}

	if req.ParentID != nil {
		var count int64
		if err := ic.DB.Model(&models.Issue{}).
			Joins("JOIN projects ON projects.id = issues.project_id").
			Where("issues.id = ? AND projects.workspace_id = ?", *req.ParentID, project.WorkspaceID).
			Count(&count).Error; err != nil || count != 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "parent_id must reference an issue in the project's workspace",
			})
		}
	}

	issue := models.Issue{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		ProjectID:   project.ID,
		AssigneeID:  req.AssigneeID,
		CreatorID:   user.ID,
		ParentID:    req.ParentID,
		Estimate:    req.Estimate,
		DueDate:     req.DueDate,
	}

	err := ic.DB.Transaction(func(tx *gorm.DB) error {
		// Bump the counter first: the row lock serializes concurrent
		// creators, and the read-back below sees our own increment.
		if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).
			UpdateColumn("issue_counter", gorm.Expr("issue_counter + ?", 1)).Error; err != nil {
			return err
		}

		var counter int
		if err := tx.Model(&models.Project{}).Select("issue_counter").
			Where("id = ?", project.ID).Scan(&counter).Error; err != nil {
			return err
		}

		issue.Identifier = fmt.Sprintf("%s-%d", project.Key, counter)
		if err := tx.Create(&issue).Error; err != nil {
			return err
		}

		for _, labelID := range req.LabelIDs {
			if err := tx.Create(&models.IssueLabel{IssueID: issue.ID, LabelID: labelID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		ic.Logger.Printf("Failed to create issue in project %d: %v", project.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create issue",
		})
	}

	single := []models.Issue{issue}
	if err := ic.loadLabels(single); err == nil {
		issue = single[0]
	}

	ic.Bus.Publish(events.Event{
		WorkspaceID: project.WorkspaceID,
		Name:        models.EventIssueCreated,
		Data:        events.Payload{Action: "created", Resource: issue},
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"issue": issue})
}

func (ic *IssueController) UpdateIssue(c *fiber.Ctx) error {
	issue, err := ic.resolveIssue(c, utils.ParseUint(c.Params("id")))
	if err != nil {
		return middleware.NotFound(c)
	}

	var req UpdateIssueRequest
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
	if req.Status != nil && !req.Status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "status must be one of the known statuses",
		})
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "priority must be one of the known priorities",
		})
	}
	if req.LabelIDs != nil && !ic.labelsInWorkspace(*req.LabelIDs, issue.Project.WorkspaceID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "label_ids must reference labels in the project's workspace",
		})
	}

	before := *issue

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.AssigneeID.Set {
		if req.AssigneeID.Value == nil {
			updates["assignee_id"] = nil
		} else {
			updates["assignee_id"] = *req.AssigneeID.Value
		}
	}
	if req.Estimate.Set {
		if req.Estimate.Value == nil {
			updates["estimate"] = nil
		} else {
			updates["estimate"] = *req.Estimate.Value
		}
	}
	if req.DueDate.Set {
		if req.DueDate.Value == nil {
			updates["due_date"] = nil
		} else {
			updates["due_date"] = *req.DueDate.Value
		}
	}

	err = ic.DB.Transaction(func(tx *gorm.DB) error {
		// Any successful update refreshes updated_at, label-only ones
		// included.
		updates["updated_at"] = time.Now()
		if err := tx.Model(issue).Updates(updates).Error; err != nil {
			return err
		}

		if req.LabelIDs != nil {
			// Junction rows are replaced outright, not soft-deleted: a
			// lingering soft-deleted row would collide with the unique
			// (issue_id, label_id) index on re-add.
			if err := tx.Unscoped().Where("issue_id = ?", issue.ID).Delete(&models.IssueLabel{}).Error; err != nil {
				return err
			}
			for _, labelID := range *req.LabelIDs {
				if err := tx.Create(&models.IssueLabel{IssueID: issue.ID, LabelID: labelID}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		ic.Logger.Printf("Failed to update issue %d: %v", issue.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update issue",
		})
	}

	// Re-apply pointer clears locally: gorm writes NULLs to the row but
	// leaves the struct fields as-is.
	if req.AssigneeID.Set && req.AssigneeID.Value == nil {
		issue.AssigneeID = nil
	}
	if req.Estimate.Set && req.Estimate.Value == nil {
		issue.Estimate = nil
	}
	if req.DueDate.Set && req.DueDate.Value == nil {
		issue.DueDate = nil
	}

	single := []models.Issue{*issue}
	if err := ic.loadLabels(single); err == nil {
		*issue = single[0]
	}

	ic.Bus.Publish(events.Event{
		WorkspaceID: issue.Project.WorkspaceID,
		Name:        models.EventIssueUpdated,
		Data: events.Payload{
			Action:   "updated",
			Resource: issue,
			Changes:  models.ComputeChanges(&before, issue),
		},
	})

	return c.JSON(fiber.Map{"issue": issue})
}

// DeleteIssue removes the issue and its label associations; the labels
// themselves survive. The webhook carries the pre-deletion snapshot.
func (ic *IssueController) DeleteIssue(c *fiber.Ctx) error {
	issue, err := ic.resolveIssue(c, utils.ParseUint(c.Params("id")))
	if err != nil {
		return middleware.NotFound(c)
	}

	snapshot := *issue
	snapshot.Project = models.Project{}
	workspaceID := issue.Project.WorkspaceID

	err = ic.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("issue_id = ?", issue.ID).Delete(&models.IssueLabel{}).Error; err != nil {
			return err
		}
		return tx.Delete(issue).Error
	})
	if err != nil {
		ic.Logger.Printf("Failed to delete issue %d: %v", issue.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete issue",
		})
	}

	ic.Bus.Publish(events.Event{
		WorkspaceID: workspaceID,
		Name:        models.EventIssueDeleted,
		Data:        events.Payload{Action: "deleted", Resource: snapshot},
	})

	return c.JSON(fiber.Map{"message": "Issue deleted successfully"})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
