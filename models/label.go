package models

import "gorm.io/gorm"

// Label is a workspace-scoped tag, many-to-many with issues.
type Label struct {
	gorm.Model
	WorkspaceID uint   `gorm:"not null;index" json:"workspace_id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Color       string `gorm:"size:7;not null" json:"color"`

	// Relations
	Workspace Workspace `json:"-"`
}

// IssueLabel is the issue<->label junction row. Deleting an issue or a
// label removes the junction rows only, never the other side.
type IssueLabel struct {
	gorm.Model
	IssueID uint `gorm:"not null;index;uniqueIndex:idx_issue_label" json:"issue_id"`
	LabelID uint `gorm:"not null;index;uniqueIndex:idx_issue_label" json:"label_id"`

	// Relations
	Issue Issue `json:"-"`
	Label Label `json:"-"`
}

// DefaultLabels are seeded into every new workspace.
func DefaultLabels(workspaceID uint) []Label {
	return []Label{
		{WorkspaceID: workspaceID, Name: "Bug", Color: "#FF708C"},
		{WorkspaceID: workspaceID, Name: "Feature", Color: "#9D58BF"},
		{WorkspaceID: workspaceID, Name: "Improvement", Color: "#FF9838"},
	}
}
