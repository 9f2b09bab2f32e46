package models

import (
	"time"

	"gorm.io/gorm"
)

type IssueStatus string

const (
	StatusBacklog    IssueStatus = "backlog"
	StatusTodo       IssueStatus = "todo"
	StatusInProgress IssueStatus = "in_progress"
	StatusInReview   IssueStatus = "in_review"
	StatusDone       IssueStatus = "done"
	StatusCancelled  IssueStatus = "cancelled"
)

// AllStatuses is the fixed display order used for board grouping.
var AllStatuses = []IssueStatus{
	StatusBacklog,
	StatusTodo,
	StatusInProgress,
	StatusInReview,
	StatusDone,
	StatusCancelled,
}

func (s IssueStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type IssuePriority string

const (
	PriorityUrgent IssuePriority = "urgent"
	PriorityHigh   IssuePriority = "high"
	PriorityMedium IssuePriority = "medium"
	PriorityLow    IssuePriority = "low"
	PriorityNone   IssuePriority = "none"
)

var AllPriorities = []IssuePriority{
	PriorityUrgent,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
	PriorityNone,
}

func (p IssuePriority) Valid() bool {
	for _, known := range AllPriorities {
		if p == known {
			return true
		}
	}
	return false
}

// Issue is the unit of tracked work.
type Issue struct {
	gorm.Model

	// Identifier is the human-readable "KEY-N" name. Unique system-wide
	// and immutable after creation.
	Identifier  string        `gorm:"size:20;uniqueIndex;not null" json:"identifier"`
	Title       string        `gorm:"size:500;not null" json:"title"`
	Description string        `json:"description,omitempty"`
	Status      IssueStatus   `gorm:"size:20;not null;default:'backlog'" json:"status"`
	Priority    IssuePriority `gorm:"size:10;not null;default:'none'" json:"priority"`

	ProjectID  uint       `gorm:"not null;index" json:"project_id"`
	AssigneeID *uint      `gorm:"index" json:"assignee_id,omitempty"`
	CreatorID  uint       `gorm:"not null;index" json:"creator_id"`
	ParentID   *uint      `gorm:"index" json:"parent_id,omitempty"`
	Estimate   *int       `json:"estimate,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`

	// Relations
	Project     Project      `json:"-"`
	Assignee    *User        `json:"assignee,omitempty"`
	Creator     User         `json:"-"`
	IssueLabels []IssueLabel `gorm:"foreignKey:IssueID;constraint:OnDelete:CASCADE" json:"-"`
	// Labels is populated from the junction rows when an issue is loaded;
	// the association itself lives in IssueLabels.
	Labels    []Label `gorm:"-" json:"labels"`
	SubIssues []Issue `gorm:"foreignKey:ParentID" json:"sub_issues,omitempty"`
}

// TrackedFields is the fixed list of fields reported in issue.updated
// webhook change maps.
var TrackedFields = []string{
	"title",
	"description",
	"status",
	"priority",
	"assignee_id",
	"estimate",
	"due_date",
}

// FieldChange records a before/after pair for one tracked field.
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

func (i *Issue) trackedValue(field string) interface{} {
	switch field {
	case "title":
		return i.Title
	case "description":
		return i.Description
	case "status":
		return i.Status
	case "priority":
		return i.Priority
	case "assignee_id":
		if i.AssigneeID == nil {
			return nil
		}
		return *i.AssigneeID
	case "estimate":
		if i.Estimate == nil {
			return nil
		}
		return *i.Estimate
	case "due_date":
		if i.DueDate == nil {
			return nil
		}
		return *i.DueDate
	}
	return nil
}

// ComputeChanges diffs two issue snapshots over the tracked-field list.
// Returns nil when nothing tracked changed.
func ComputeChanges(before, after *Issue) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for _, field := range TrackedFields {
		oldV := before.trackedValue(field)
		newV := after.trackedValue(field)
		if oldV != newV {
			changes[field] = FieldChange{Old: oldV, New: newV}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}
