package models

import "strings"

// IssueFilter is the conjunction of criteria applied to the issue
// collection. Empty slices and nil pointers leave that field
// unconstrained.
type IssueFilter struct {
	Status     []IssueStatus   `json:"status,omitempty"`
	Priority   []IssuePriority `json:"priority,omitempty"`
	AssigneeID *uint           `json:"assignee_id,omitempty"`
	ProjectID  *uint           `json:"project_id,omitempty"`
	Search     string          `json:"search,omitempty"`
}

// Matches reports whether the issue satisfies every set criterion. The
// search term matches case-insensitively against title OR identifier OR
// description.
func (f IssueFilter) Matches(issue *Issue) bool {
	if len(f.Status) > 0 && !containsStatus(f.Status, issue.Status) {
		return false
	}
	if len(f.Priority) > 0 && !containsPriority(f.Priority, issue.Priority) {
		return false
	}
	if f.AssigneeID != nil {
		if issue.AssigneeID == nil || *issue.AssigneeID != *f.AssigneeID {
			return false
		}
	}
	if f.ProjectID != nil && issue.ProjectID != *f.ProjectID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(issue.Title), needle) &&
			!strings.Contains(strings.ToLower(issue.Identifier), needle) &&
			!strings.Contains(strings.ToLower(issue.Description), needle) {
			return false
		}
	}
	return true
}

// FilterIssues returns the issues matching the filter, preserving order.
func FilterIssues(issues []Issue, f IssueFilter) []Issue {
	filtered := make([]Issue, 0, len(issues))
	for i := range issues {
		if f.Matches(&issues[i]) {
			filtered = append(filtered, issues[i])
		}
	}
	return filtered
}

// StatusGroup is one bucket of the board partition.
type StatusGroup struct {
	Status IssueStatus `json:"status"`
	Issues []Issue     `json:"issues"`
}

// GroupByStatus partitions issues into the six status buckets in display
// order. Every bucket is always present; empty ones are simply empty.
func GroupByStatus(issues []Issue) []StatusGroup {
	groups := make([]StatusGroup, len(AllStatuses))
	index := make(map[IssueStatus]int, len(AllStatuses))
	for i, status := range AllStatuses {
		groups[i] = StatusGroup{Status: status, Issues: []Issue{}}
		index[status] = i
	}
	for _, issue := range issues {
		if i, ok := index[issue.Status]; ok {
			groups[i].Issues = append(groups[i].Issues, issue)
		}
	}
	return groups
}

// View is a named filter preset over the issue collection.
type View struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Icon   string       `json:"icon"`
	Filter *IssueFilter `json:"filter,omitempty"`
}

const (
	ViewInbox    = "inbox"
	ViewMyIssues = "my-issues"
	ViewActive   = "active"
	ViewBacklog  = "backlog"
)

// BuiltinViews returns the four built-in views. Inbox hides cancelled
// issues; My Issues is resolved against the calling user at filter time.
func BuiltinViews() []View {
	return []View{
		{ID: ViewInbox, Name: "Inbox", Icon: "inbox", Filter: &IssueFilter{
			Status: []IssueStatus{StatusBacklog, StatusTodo, StatusInProgress, StatusInReview, StatusDone},
		}},
		{ID: ViewMyIssues, Name: "My Issues", Icon: "user"},
		{ID: ViewActive, Name: "Active", Icon: "circle-dot", Filter: &IssueFilter{
			Status: []IssueStatus{StatusInProgress, StatusInReview},
		}},
		{ID: ViewBacklog, Name: "Backlog", Icon: "layers", Filter: &IssueFilter{
			Status: []IssueStatus{StatusBacklog},
		}},
	}
}

// ResolveViewFilter combines a view's static filter with the caller's
// ad-hoc filter. Ad-hoc status/priority sets REPLACE the view's sets for
// that field rather than intersecting with them; assignee, project and
// search always come from the ad-hoc filter when set.
func ResolveViewFilter(viewID string, currentUserID uint, adhoc IssueFilter) IssueFilter {
	effective := IssueFilter{}

	for _, view := range BuiltinViews() {
		if view.ID != viewID {
			continue
		}
		if view.Filter != nil {
			effective = *view.Filter
		}
		if view.ID == ViewMyIssues {
			uid := currentUserID
			effective.AssigneeID = &uid
		}
		break
	}

	// Last writer wins, per field.
	if len(adhoc.Status) > 0 {
		effective.Status = adhoc.Status
	}
	if len(adhoc.Priority) > 0 {
		effective.Priority = adhoc.Priority
	}
	if adhoc.AssigneeID != nil {
		effective.AssigneeID = adhoc.AssigneeID
	}
	if adhoc.ProjectID != nil {
		effective.ProjectID = adhoc.ProjectID
	}
	if adhoc.Search != "" {
		effective.Search = adhoc.Search
	}
	return effective
}

func containsStatus(set []IssueStatus, s IssueStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(set []IssuePriority, p IssuePriority) bool {
	for _, v := range set {
		if v == p {
			return true
		}
	}
	return false
}
