package metadata

import (
	"strings"
	"time"
)

// Status categories used by the remote API.
const (
	CategoryDraft      = "draft"
	CategoryOpen       = "open"
	CategoryInProgress = "in_progress"
	CategoryClosed     = "closed"
	CategoryVoid       = "void"
)

// Attribute data types used by the remote API.
const (
	AttrText      = "text"
	AttrParagraph = "paragraph"
	AttrNumeric   = "numeric"
	AttrList      = "list"
)

// IssueSubtype is a concrete issue category an issue is filed under.
type IssueSubtype struct {
	ID       string `json:"id"`
	Name     string `json:"title"`
	IsActive bool   `json:"isActive"`
}

// IssueType groups related subtypes.
type IssueType struct {
	ID       string         `json:"id"`
	Name     string         `json:"title"`
	IsActive bool           `json:"isActive"`
	Subtypes []IssueSubtype `json:"subtypes"`
}

// Status is a workflow state valid for some set of subtypes. An empty
// SubtypeIDs list means the status applies to every subtype.
type Status struct {
	ID         string   `json:"id"`
	Name       string   `json:"title"`
	Category   string   `json:"category"`
	IsDefault  bool     `json:"isDefault"`
	SubtypeIDs []string `json:"subtypeIds"`
}

// SelectOption is one allowed value of a list attribute.
type SelectOption struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// CustomAttribute is a project-defined issue field.
type CustomAttribute struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	DataType string         `json:"dataType"`
	Options  []SelectOption `json:"metadata,omitempty"`
}

// ProjectMetadata is the schema snapshot for one project: which issue
// types, statuses, and custom fields are valid. Read-only to consumers.
type ProjectMetadata struct {
	ProjectID        string
	IssueTypes       []IssueType
	Statuses         []Status
	CustomAttributes []CustomAttribute
	FetchedAt        time.Time
}

// StatusesForSubtype returns the statuses valid for the given subtype.
func (m *ProjectMetadata) StatusesForSubtype(subtypeID string) []Status {
	var out []Status
	for _, s := range m.Statuses {
		if len(s.SubtypeIDs) == 0 {
			out = append(out, s)
			continue
		}
		for _, id := range s.SubtypeIDs {
			if id == subtypeID {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// DefaultStatusForSubtype returns the default status for a subtype, or
// nil when none is marked default.
func (m *ProjectMetadata) DefaultStatusForSubtype(subtypeID string) *Status {
	for _, s := range m.StatusesForSubtype(subtypeID) {
		if s.IsDefault {
			cp := s
			return &cp
		}
	}
	return nil
}

// AttributeByTitle finds a custom attribute by case-insensitive title.
func (m *ProjectMetadata) AttributeByTitle(title string) *CustomAttribute {
	for i := range m.CustomAttributes {
		if strings.EqualFold(m.CustomAttributes[i].Title, title) {
			return &m.CustomAttributes[i]
		}
	}
	return nil
}
