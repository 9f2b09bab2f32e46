package models

import (
	"strings"
	"unicode"

	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `gorm:"not null" json:"name"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	Memberships    []WorkspaceMember `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	CreatedIssues  []Issue           `gorm:"foreignKey:CreatorID" json:"created_issues,omitempty"`
	AssignedIssues []Issue           `gorm:"foreignKey:AssigneeID" json:"assigned_issues,omitempty"`
}

// Initials returns up to two uppercase initials for avatar rendering,
// "U" when the name carries no usable characters. Words are sliced by
// rune so multi-byte first letters stay valid UTF-8.
func (u *User) Initials() string {
	var initials []rune
	for _, word := range strings.Fields(u.Name) {
		initials = append(initials, unicode.ToUpper([]rune(word)[0]))
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		return "U"
	}
	return string(initials)
}
