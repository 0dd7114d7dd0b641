package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/constructo/acc-issues-mcp/internal/api"
	"github.com/constructo/acc-issues-mcp/internal/mapper"
	"github.com/constructo/acc-issues-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeAuth          = -32001 // No usable credentials; may need re-authorization
	ErrorCodeValidation    = -32002 // Input could not be mapped to valid fields
	ErrorCodeAPI           = -32003 // Remote API rejected the request
	ErrorCodeTimeout       = -32004 // Outbound call exceeded its deadline
)

// MaxListLimit is the largest page size the list tools accept.
const MaxListLimit = 200

// handleCreateIssue handles the create_issue tool invocation
func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	req := mapper.IssueRequest{
		Title:           getStringDefault(args, "title", ""),
		Description:     getStringDefault(args, "description", ""),
		IssueType:       getStringDefault(args, "issue_type", ""),
		Status:          getStringDefault(args, "status", ""),
		AssignedTo:      getStringDefault(args, "assigned_to", ""),
		DueDate:         getStringDefault(args, "due_date", ""),
		LocationDetails: getStringDefault(args, "location_details", ""),
	}
	if attrs, ok := args["custom_attributes"].(map[string]interface{}); ok {
		req.CustomAttributes = attrs
	}

	meta, err := s.cache.Project(ctx, s.projectID)
	if err != nil {
		return nil, toolError(err)
	}

	mapped, err := mapper.Map(req, meta)
	if err != nil {
		return nil, toolError(err)
	}

	issue, err := s.issues.CreateIssue(ctx, s.projectID, issuePayload(mapped))
	if err != nil {
		return nil, toolError(err)
	}

	s.logger.Info("issue created", "issue_id", issue.ID, "display_id", issue.DisplayID)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"created": true,
		"issue":   issue,
	})), nil
}

// handleUpdateIssue handles the update_issue tool invocation
func (s *Server) handleUpdateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	issueID, err := requiredUUID(args, "issue_id")
	if err != nil {
		return nil, err
	}

	var payload api.IssuePayload
	if title, ok := args["title"].(string); ok && title != "" {
		if utf8.RuneCountInString(title) > mapper.TitleMaxLen {
			return nil, toolError(&types.ValidationError{Violations: []types.Violation{{
				Field: "title", Reason: fmt.Sprintf("must be at most %d characters", mapper.TitleMaxLen),
			}}})
		}
		payload.Title = &title
	}
	if desc, ok := args["description"].(string); ok && desc != "" {
		if utf8.RuneCountInString(desc) > mapper.DescriptionMaxLen {
			return nil, toolError(&types.ValidationError{Violations: []types.Violation{{
				Field: "description", Reason: fmt.Sprintf("must be at most %d characters", mapper.DescriptionMaxLen),
			}}})
		}
		payload.Description = &desc
	}
	if assignee, ok := args["assigned_to"].(string); ok && assignee != "" {
		payload.AssignedTo = &assignee
	}
	if due, ok := args["due_date"].(string); ok && due != "" {
		payload.DueDate = &due
	}

	// A status change is validated against the issue's subtype, which
	// requires the current issue and the project schema.
	if statusArg, ok := args["status"].(string); ok && statusArg != "" {
		current, err := s.issues.GetIssue(ctx, s.projectID, issueID)
		if err != nil {
			return nil, toolError(err)
		}
		meta, err := s.cache.Project(ctx, s.projectID)
		if err != nil {
			return nil, toolError(err)
		}
		status, violation := mapper.ResolveStatus(statusArg, current.IssueSubtypeID, meta)
		if violation != nil {
			return nil, toolError(&types.ValidationError{Violations: []types.Violation{*violation}})
		}
		if status != nil {
			payload.Status = &status.Name
		}
	}

	issue, err := s.issues.UpdateIssue(ctx, s.projectID, issueID, payload)
	if err != nil {
		return nil, toolError(err)
	}

	s.logger.Info("issue updated", "issue_id", issue.ID)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"updated": true,
		"issue":   issue,
	})), nil
}

// handleListIssues handles the list_issues tool invocation
func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > MaxListLimit {
		return nil, newMCPError(ErrorCodeInvalidParams,
			fmt.Sprintf("limit must be between 1 and %d", MaxListLimit), map[string]interface{}{
				"param": "limit",
				"value": limit,
			})
	}
	offset := getIntDefault(args, "offset", 0)
	if offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must not be negative", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}

	query := api.ListIssuesQuery{
		Status:     getStringDefault(args, "status", ""),
		AssignedTo: getStringDefault(args, "assigned_to", ""),
		CreatedBy:  getStringDefault(args, "created_by", ""),
		DueDate:    getStringDefault(args, "due_date", ""),
		Sort:       getStringDefault(args, "sort", ""),
		Limit:      limit,
		Offset:     offset,
	}
	if typeID := getStringDefault(args, "issue_type_id", ""); typeID != "" {
		if _, err := uuid.Parse(typeID); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid issue_type_id", map[string]interface{}{
				"param":  "issue_type_id",
				"reason": "must be a UUID",
			})
		}
		query.TypeID = typeID
	}

	list, err := s.issues.ListIssues(ctx, s.projectID, query)
	if err != nil {
		return nil, toolError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"pagination": list.Pagination,
		"results":    list.Results,
	})), nil
}

// handleGetIssue handles the get_issue tool invocation
func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	if issueID := getStringDefault(args, "issue_id", ""); issueID != "" {
		if _, err := uuid.Parse(issueID); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid issue_id", map[string]interface{}{
				"param":  "issue_id",
				"reason": "must be a UUID",
			})
		}
		issue, err := s.issues.GetIssue(ctx, s.projectID, issueID)
		if err != nil {
			return nil, toolError(err)
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{"issue": issue})), nil
	}

	displayID := getIntDefault(args, "display_id", 0)
	if displayID <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "either issue_id or display_id is required", nil)
	}

	list, err := s.issues.ListIssues(ctx, s.projectID, api.ListIssuesQuery{
		Search: fmt.Sprintf("%d", displayID),
		Limit:  MaxListLimit,
	})
	if err != nil {
		return nil, toolError(err)
	}
	for i := range list.Results {
		if list.Results[i].DisplayID == displayID {
			return mcp.NewToolResultText(formatJSON(map[string]interface{}{"issue": list.Results[i]})), nil
		}
	}
	return nil, newMCPError(ErrorCodeAPI, fmt.Sprintf("no issue with display ID %d", displayID), nil)
}

// handleSearchIssues handles the search_issues tool invocation
func (s *Server) handleSearchIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 20)
	if limit < 1 || limit > MaxListLimit {
		return nil, newMCPError(ErrorCodeInvalidParams,
			fmt.Sprintf("limit must be between 1 and %d", MaxListLimit), map[string]interface{}{
				"param": "limit",
				"value": limit,
			})
	}

	list, err := s.issues.ListIssues(ctx, s.projectID, api.ListIssuesQuery{
		Search: query,
		Limit:  limit,
	})
	if err != nil {
		return nil, toolError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":      query,
		"pagination": list.Pagination,
		"results":    list.Results,
	})), nil
}

// handleAddComment handles the add_comment tool invocation
func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	issueID, err := requiredUUID(args, "issue_id")
	if err != nil {
		return nil, err
	}

	body, ok := args["body"].(string)
	if !ok || strings.TrimSpace(body) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "body parameter is required and cannot be empty", map[string]interface{}{
			"param":  "body",
			"reason": "missing or empty",
		})
	}

	comment, err := s.issues.AddComment(ctx, s.projectID, issueID, body)
	if err != nil {
		return nil, toolError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"added":   true,
		"comment": comment,
	})), nil
}

// handleListIssueTypes handles the list_issue_types tool invocation
func (s *Server) handleListIssueTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	includeSubtypes := getBoolDefault(args, "include_subtypes", true)

	meta, err := s.cache.Project(ctx, s.projectID)
	if err != nil {
		return nil, toolError(err)
	}

	issueTypes := meta.IssueTypes
	if !includeSubtypes {
		stripped := make([]map[string]interface{}, len(issueTypes))
		for i, it := range issueTypes {
			stripped[i] = map[string]interface{}{
				"id":       it.ID,
				"title":    it.Name,
				"isActive": it.IsActive,
			}
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"results": stripped,
		})), nil
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": issueTypes,
	})), nil
}

// handleListStatuses handles the list_statuses tool invocation
func (s *Server) handleListStatuses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	meta, err := s.cache.Project(ctx, s.projectID)
	if err != nil {
		return nil, toolError(err)
	}

	statuses := meta.Statuses
	if subtypeID := getStringDefault(args, "subtype_id", ""); subtypeID != "" {
		if _, err := uuid.Parse(subtypeID); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid subtype_id", map[string]interface{}{
				"param":  "subtype_id",
				"reason": "must be a UUID",
			})
		}
		statuses = meta.StatusesForSubtype(subtypeID)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": statuses,
	})), nil
}

// handleListCustomAttributes handles the list_custom_attributes tool invocation
func (s *Server) handleListCustomAttributes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meta, err := s.cache.Project(ctx, s.projectID)
	if err != nil {
		return nil, toolError(err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results": meta.CustomAttributes,
	})), nil
}

// Helper functions

// issuePayload converts a mapped issue into the API's writable shape.
func issuePayload(m *mapper.MappedIssue) api.IssuePayload {
	payload := api.IssuePayload{
		Title:          strPtr(m.Title),
		IssueTypeID:    strPtr(m.TypeID),
		IssueSubtypeID: strPtr(m.SubtypeID),
	}
	if m.Description != "" {
		payload.Description = &m.Description
	}
	if m.Status != "" {
		payload.Status = &m.Status
	}
	if m.AssignedTo != "" {
		payload.AssignedTo = &m.AssignedTo
	}
	if m.DueDate != "" {
		payload.DueDate = &m.DueDate
	}
	if m.LocationDetails != "" {
		payload.LocationDetails = &m.LocationDetails
	}
	for _, attr := range m.CustomAttributes {
		payload.CustomAttributes = append(payload.CustomAttributes, api.AttributeValue{
			AttributeDefinitionID: attr.DefinitionID,
			Value:                 attr.Value,
		})
	}
	return payload
}

func strPtr(s string) *string {
	return &s
}

// requiredUUID extracts a mandatory UUID argument.
func requiredUUID(args map[string]interface{}, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid "+key, map[string]interface{}{
			"param":  key,
			"reason": "must be a UUID",
		})
	}
	return value, nil
}

// toolError translates the domain error taxonomy into MCP errors.
func toolError(err error) error {
	var authErr *types.AuthError
	if errors.As(err, &authErr) {
		return newMCPError(ErrorCodeAuth, authErr.Error(), map[string]interface{}{
			"reauthorization_required": authErr.Reauth,
		})
	}

	var vErr *types.ValidationError
	if errors.As(err, &vErr) {
		return newMCPError(ErrorCodeValidation, "input could not be mapped to valid fields", map[string]interface{}{
			"violations": vErr.Violations,
		})
	}

	var apiErr *types.APIError
	if errors.As(err, &apiErr) {
		return newMCPError(ErrorCodeAPI, apiErr.Error(), map[string]interface{}{
			"status_code": apiErr.StatusCode,
			"code":        apiErr.Code,
			"detail":      apiErr.Detail,
		})
	}

	var timeoutErr *types.TimeoutError
	if errors.As(err, &timeoutErr) {
		return newMCPError(ErrorCodeTimeout, timeoutErr.Error(), map[string]interface{}{
			"operation": timeoutErr.Op,
			"timeout":   timeoutErr.Timeout.String(),
		})
	}

	return newMCPError(ErrorCodeInternalError, err.Error(), nil)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	switch val := args[key].(type) {
	case float64:
		return int(val)
	case int:
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
