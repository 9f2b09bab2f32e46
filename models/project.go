package models

import (
	"strings"
	"unicode"

	"gorm.io/gorm"
)

const DefaultProjectKey = "PRJ"

// Project is a named issue container within a workspace. It owns the
// monotonic counter used to build human-readable issue identifiers.
type Project struct {
	gorm.Model
	WorkspaceID uint   `gorm:"not null;index" json:"workspace_id"`
	Name        string `gorm:"not null" json:"name"`
	Key         string `gorm:"size:10;not null" json:"key"`
	Color       string `gorm:"size:7;default:'#9D58BF'" json:"color"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	LeadID      *uint  `json:"lead_id,omitempty"`

	// IssueCounter only ever increases; it is bumped atomically with each
	// issue insert so identifiers never collide.
	IssueCounter int `gorm:"not null;default:0" json:"issue_counter"`

	// Relations
	Workspace Workspace `json:"-"`
	Lead      *User     `json:"lead,omitempty"`
	Issues    []Issue   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"issues,omitempty"`
}

// DeriveProjectKey builds the short key from a project name: the first
// letter of each space-separated word, uppercased, truncated to 3
// characters. Names without letters fall back to "PRJ".
func DeriveProjectKey(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	// Truncate by rune, not byte: non-ASCII initials must survive intact.
	key := []rune(b.String())
	if len(key) > 3 {
		key = key[:3]
	}
	if len(key) == 0 {
		return DefaultProjectKey
	}
	return string(key)
}
