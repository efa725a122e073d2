// Package workitem holds the work item business-value and relationship model.
//
// Everything here is a pure function over an explicit snapshot: nothing fetches,
// nothing talks to the network. Callers translate the returned intents into
// calls against the remote store.
package workitem

import (
	"fmt"
	"slices"
	"strings"
)

// Type is a work item type.
type Type string

// Supported work item types.
const (
	TypeEpic               Type = "Epic"
	TypeFeature            Type = "Feature"
	TypeProductBacklogItem Type = "Product Backlog Item"
	TypeBug                Type = "Bug"
	TypeIssue              Type = "Issue"
	TypeTestCase           Type = "Test Case"
	TypeTestPlan           Type = "Test Plan"
	TypeTestSuite          Type = "Test Suite"
)

// Types lists every supported work item type.
var Types = []Type{
	TypeEpic,
	TypeFeature,
	TypeProductBacklogItem,
	TypeBug,
	TypeIssue,
	TypeTestCase,
	TypeTestPlan,
	TypeTestSuite,
}

// ParseType validates a work item type name.
func ParseType(name string) (Type, error) {
	t := Type(strings.TrimSpace(name))
	if !slices.Contains(Types, t) {
		return "", fmt.Errorf("unsupported work item type %q", name)
	}
	return t, nil
}

var (
	portfolioStates = []string{"New", "In Progress", "Done", "Removed"}
	backlogStates   = []string{"New", "Approved", "Committed", "Done", "Removed"}
	defaultStates   = []string{"New", "In Progress", "Resolved", "Closed"}
)

// ValidStates returns the ordered states allowed for a type.
func ValidStates(t Type) []string {
	switch t {
	case TypeEpic, TypeFeature:
		return slices.Clone(portfolioStates)
	case TypeProductBacklogItem:
		return slices.Clone(backlogStates)
	default:
		return slices.Clone(defaultStates)
	}
}

// InitialState is the first valid state of a type.
func InitialState(t Type) string {
	return ValidStates(t)[0]
}

// IsValidState reports whether state belongs to the type's state list.
func IsValidState(t Type, state string) bool {
	return slices.Contains(ValidStates(t), state)
}

// WorkItem is a work item as fetched from the remote store.
type WorkItem struct {
	ID                 int     `json:"id"`
	Type               Type    `json:"type"`
	State              string  `json:"state"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	AreaPath           string  `json:"areaPath,omitempty"`
	Tags               string  `json:"tags,omitempty"`
	Effort             float64 `json:"effort,omitempty"`
	BusinessValue      int     `json:"businessValue"`
	AcceptanceCriteria string  `json:"acceptanceCriteria,omitempty"`
}

// Categories decodes the category selection embedded in the item's tags.
func (w WorkItem) Categories() CategorySelection {
	return DecodeTags(w.Tags)
}

// TagList returns the item's tags split and trimmed.
func (w WorkItem) TagList() []string {
	return SplitTags(w.Tags)
}

// Draft is an unsaved work item. Its type can still change.
type Draft struct {
	Type               Type
	State              string
	Title              string
	Description        string
	AreaPath           string
	Tags               string
	Effort             float64
	AcceptanceCriteria string
	Categories         CategorySelection
	HistoryComment     string
}

// NewDraft starts a draft in the first state of its type.
func NewDraft(t Type) Draft {
	return Draft{Type: t, State: InitialState(t)}
}

// SetType changes the draft type and resets the state to the type's first state.
func (d *Draft) SetType(t Type) {
	d.Type = t
	d.State = InitialState(t)
}

// Edit describes changes to a saved work item. Nil fields are left unchanged.
type Edit struct {
	Title              *string
	Description        *string
	State              *string
	AreaPath           *string
	Tags               *string
	Effort             *float64
	AcceptanceCriteria *string
	Categories         *CategorySelection
	HistoryComment     string
}

// Empty reports whether the edit changes nothing.
func (e Edit) Empty() bool {
	return e.Title == nil && e.Description == nil && e.State == nil && e.AreaPath == nil &&
		e.Tags == nil && e.Effort == nil && e.AcceptanceCriteria == nil && e.Categories == nil &&
		strings.TrimSpace(e.HistoryComment) == ""
}
