package models

import (
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Workspace roles, lowest to highest privilege
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// Workspace is the tenant boundary: it owns projects, labels, members and
// the webhook configuration.
type Workspace struct {
	gorm.Model
	Name    string `gorm:"not null" json:"name"`
	Slug    string `gorm:"uniqueIndex;not null" json:"slug"`
	Icon    string `json:"icon,omitempty"`
	OwnerID uint   `gorm:"not null;index" json:"owner_id"`

	// Relations
	Owner    User              `json:"-"`
	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"projects,omitempty"`
	Labels   []Label           `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"labels,omitempty"`
	Webhook  *Webhook          `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"webhook,omitempty"`
}

// WorkspaceMember links users to workspaces with a role
type WorkspaceMember struct {
	gorm.Model
	WorkspaceID uint `gorm:"not null;index;uniqueIndex:idx_workspace_user" json:"workspace_id"`
	UserID      uint `gorm:"not null;index;uniqueIndex:idx_workspace_user" json:"user_id"`

	Role string `gorm:"default:'member'" json:"role"` // owner, admin, member

	// Relations
	Workspace Workspace `json:"-"`
	User      User      `json:"-"`
}

// CanManageSettings reports whether the member may change workspace
// settings, manage members, or configure webhooks.
func (m *WorkspaceMember) CanManageSettings() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// SlugifyWorkspaceName turns a display name into a URL slug:
// lowercased, non-alphanumeric runs collapsed to single dashes.
func SlugifyWorkspaceName(name string) string {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "workspace"
	}
	return slug
}
