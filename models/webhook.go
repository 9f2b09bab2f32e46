package models

import (
	"strings"

	"gorm.io/gorm"
)

// Lifecycle events a webhook may subscribe to.
const (
	EventIssueCreated   = "issue.created"
	EventIssueUpdated   = "issue.updated"
	EventIssueDeleted   = "issue.deleted"
	EventProjectCreated = "project.created"
	EventProjectUpdated = "project.updated"
	EventProjectDeleted = "project.deleted"
)

var WebhookEvents = []string{
	EventIssueCreated,
	EventIssueUpdated,
	EventIssueDeleted,
	EventProjectCreated,
	EventProjectUpdated,
	EventProjectDeleted,
}

func ValidWebhookEvent(event string) bool {
	for _, known := range WebhookEvents {
		if event == known {
			return true
		}
	}
	return false
}

// Webhook is the outbound notification config: at most one per workspace.
type Webhook struct {
	gorm.Model
	WorkspaceID uint   `gorm:"not null;uniqueIndex" json:"workspace_id"`
	URL         string `gorm:"not null" json:"url"`
	Secret      string `json:"-"`

	// No default tag here: gorm skips zero-valued fields that carry one
	// on insert, which would silently flip a disabled config to enabled.
	Enabled bool `gorm:"not null" json:"enabled"`

	// Events holds the subscribed event names as a comma-separated list.
	Events string `gorm:"not null" json:"-"`

	// Relations
	Workspace Workspace `json:"-"`
}

// EventList splits the stored subscription set.
func (w *Webhook) EventList() []string {
	if w.Events == "" {
		return nil
	}
	return strings.Split(w.Events, ",")
}

// SetEvents stores the subscription set.
func (w *Webhook) SetEvents(events []string) {
	w.Events = strings.Join(events, ",")
}

// Subscribed reports whether the config covers the given event.
func (w *Webhook) Subscribed(event string) bool {
	for _, e := range w.EventList() {
		if e == event {
			return true
		}
	}
	return false
}
