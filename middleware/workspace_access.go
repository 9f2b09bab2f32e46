package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"momentum/config"
	"momentum/models"
	"momentum/utils"
)

// MembershipFor resolves the caller's membership in a workspace. A
// missing row means the caller has no access; the distinction between
// "workspace does not exist" and "caller is not a member" is kept out of
// responses and only surfaces in logs.
func MembershipFor(userID, workspaceID uint) (*models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	err := config.DB.Where("user_id = ? AND workspace_id = ?", userID, workspaceID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// NotFound is the single generic response for both missing resources and
// resources outside the caller's workspaces, so ids cannot be probed.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Not found",
	})
}

// Forbidden is returned when a member's role is insufficient for a
// privileged operation on a workspace they do belong to.
func Forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

// RequireMembership guards routes carrying a :workspaceID param. It
// resolves the caller's membership once and stashes it in ctx locals so
// handlers never re-implement the lookup.
func RequireMembership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals("user").(*models.User)
		workspaceID := utils.ParseUint(c.Params("workspaceID"))
		if workspaceID == 0 {
			return NotFound(c)
		}

		member, err := MembershipFor(user.ID, workspaceID)
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to resolve membership",
				})
			}
			logrus.WithFields(logrus.Fields{
				"user_id":      user.ID,
				"workspace_id": workspaceID,
				"path":         c.Path(),
			}).Info("Denied access to workspace-scoped resource")
			return NotFound(c)
		}

		c.Locals("membership", member)
		c.Locals("workspaceID", workspaceID)
		return c.Next()
	}
}

// RequireSettingsRole guards privileged workspace operations (rename,
// icon, member management, webhook CRUD). Must run after
// RequireMembership.
func RequireSettingsRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		member := c.Locals("membership").(*models.WorkspaceMember)
		if !member.CanManageSettings() {
			logrus.WithFields(logrus.Fields{
				"user_id":      member.UserID,
				"workspace_id": member.WorkspaceID,
				"role":         member.Role,
				"path":         c.Path(),
			}).Info("Denied privileged workspace operation")
			return Forbidden(c)
		}
		return c.Next()
	}
}

// UserWorkspaceIDs lists every workspace the user belongs to.
func UserWorkspaceIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := config.DB.Model(&models.WorkspaceMember{}).
		Where("user_id = ?", userID).
		Pluck("workspace_id", &ids).Error
	return ids, err
}
