package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Issue is the remote representation of a construction issue.
type Issue struct {
	ID               string           `json:"id"`
	DisplayID        int              `json:"displayId,omitempty"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	IssueTypeID      string           `json:"issueTypeId,omitempty"`
	IssueSubtypeID   string           `json:"issueSubtypeId,omitempty"`
	Status           string           `json:"status,omitempty"`
	AssignedTo       string           `json:"assignedTo,omitempty"`
	AssignedToType   string           `json:"assignedToType,omitempty"`
	DueDate          string           `json:"dueDate,omitempty"`
	LocationDetails  string           `json:"locationDetails,omitempty"`
	CustomAttributes []AttributeValue `json:"customAttributes,omitempty"`
	CreatedBy        string           `json:"createdBy,omitempty"`
	CreatedAt        string           `json:"createdAt,omitempty"`
	UpdatedAt        string           `json:"updatedAt,omitempty"`
}

// AttributeValue is a custom attribute value attached to an issue.
type AttributeValue struct {
	AttributeDefinitionID string `json:"attributeDefinitionId"`
	Value                 any    `json:"value"`
}

// Pagination is the cursorless offset pagination block the API returns.
type Pagination struct {
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalCount int `json:"totalResults"`
}

// IssueList is a page of issues.
type IssueList struct {
	Pagination Pagination `json:"pagination"`
	Results    []Issue    `json:"results"`
}

// Comment is a remark attached to an issue.
type Comment struct {
	ID        string `json:"id"`
	Body      string `json:"body"`
	CreatedBy string `json:"createdBy,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// IssuePayload is the writable field set for create and update calls.
// Pointer fields distinguish "absent" from "set to zero" on PATCH.
type IssuePayload struct {
	Title            *string          `json:"title,omitempty"`
	Description      *string          `json:"description,omitempty"`
	IssueTypeID      *string          `json:"issueTypeId,omitempty"`
	IssueSubtypeID   *string          `json:"issueSubtypeId,omitempty"`
	Status           *string          `json:"status,omitempty"`
	AssignedTo       *string          `json:"assignedTo,omitempty"`
	DueDate          *string          `json:"dueDate,omitempty"`
	LocationDetails  *string          `json:"locationDetails,omitempty"`
	CustomAttributes []AttributeValue `json:"customAttributes,omitempty"`
}

// ListIssuesQuery is the filter set for ListIssues.
type ListIssuesQuery struct {
	Status     string // comma-separated status names
	TypeID     string
	SubtypeID  string
	AssignedTo string
	CreatedBy  string
	DueDate    string // single date or "start..end" range
	Search     string
	Limit      int
	Offset     int
	Sort       string // field name, '-' prefix for descending
}

func (q ListIssuesQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("filter[status]", q.Status)
	}
	if q.TypeID != "" {
		v.Set("filter[issueTypeId]", q.TypeID)
	}
	if q.SubtypeID != "" {
		v.Set("filter[issueSubtypeId]", q.SubtypeID)
	}
	if q.AssignedTo != "" {
		v.Set("filter[assignedTo]", q.AssignedTo)
	}
	if q.CreatedBy != "" {
		v.Set("filter[createdBy]", q.CreatedBy)
	}
	if q.DueDate != "" {
		v.Set("filter[dueDate]", q.DueDate)
	}
	if q.Search != "" {
		v.Set("filter[search]", q.Search)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Sort != "" {
		v.Set("sortBy", q.Sort)
	}
	return v
}

// CreateIssue creates a new issue in the project.
func (c *Client) CreateIssue(ctx context.Context, projectID string, payload IssuePayload) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("projects/%s/issues", projectID)
	if err := c.Post(ctx, path, payload, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateIssue patches fields on an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, projectID, issueID string, payload IssuePayload) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("projects/%s/issues/%s", projectID, issueID)
	if err := c.Patch(ctx, path, payload, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetIssue fetches a single issue by its UUID.
func (c *Client) GetIssue(ctx context.Context, projectID, issueID string) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("projects/%s/issues/%s", projectID, issueID)
	if err := c.Get(ctx, path, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListIssues returns a filtered page of issues.
func (c *Client) ListIssues(ctx context.Context, projectID string, query ListIssuesQuery) (*IssueList, error) {
	var list IssueList
	path := fmt.Sprintf("projects/%s/issues", projectID)
	if err := c.Get(ctx, path, query.values(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// AddComment attaches a comment to an issue.
func (c *Client) AddComment(ctx context.Context, projectID, issueID, body string) (*Comment, error) {
	var comment Comment
	path := fmt.Sprintf("projects/%s/issues/%s/comments", projectID, issueID)
	if err := c.Post(ctx, path, map[string]string{"body": body}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}
