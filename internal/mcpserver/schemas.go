package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createIssueTool returns the tool definition for create_issue
func createIssueTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_issue",
		Description: "Create a new issue in the construction project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Title of the issue (max 100 characters)",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Detailed description of the issue (max 1000 characters)",
				},
				"issue_type": map[string]interface{}{
					"type":        "string",
					"description": "Issue type or category in plain words; mapped to a valid project issue subtype",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Issue status in plain words; must resolve to a status valid for the issue subtype",
				},
				"location_details": map[string]interface{}{
					"type":        "string",
					"description": "Physical location description (max 250 characters)",
				},
				"due_date": map[string]interface{}{
					"type":        "string",
					"description": "Due date in ISO 8601 format (YYYY-MM-DD)",
				},
				"assigned_to": map[string]interface{}{
					"type":        "string",
					"description": "Person, role, or company ID to assign",
				},
				"custom_attributes": map[string]interface{}{
					"type":        "object",
					"description": "Custom attribute values keyed by attribute title",
				},
			},
			Required: []string{"title", "issue_type"},
		},
	}
}

// updateIssueTool returns the tool definition for update_issue
func updateIssueTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_issue",
		Description: "Update fields on an existing issue",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"issue_id": map[string]interface{}{
					"type":        "string",
					"description": "UUID of the issue to update",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "New title (max 100 characters)",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "New description (max 1000 characters)",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"description": "New status in plain words; validated against the issue's subtype",
				},
				"assigned_to": map[string]interface{}{
					"type":        "string",
					"description": "New assignee ID",
				},
				"due_date": map[string]interface{}{
					"type":        "string",
					"description": "New due date in ISO 8601 format (YYYY-MM-DD)",
				},
			},
			Required: []string{"issue_id"},
		},
	}
}

// listIssuesTool returns the tool definition for list_issues
func listIssuesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_issues",
		Description: "Get a filtered list of issues from the project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Filter by status (comma-separated for multiple)",
				},
				"issue_type_id": map[string]interface{}{
					"type":        "string",
					"description": "Filter by issue type ID",
				},
				"assigned_to": map[string]interface{}{
					"type":        "string",
					"description": "Filter by assignee ID",
				},
				"created_by": map[string]interface{}{
					"type":        "string",
					"description": "Filter by creator ID",
				},
				"due_date": map[string]interface{}{
					"type":        "string",
					"description": "Filter by due date or range (e.g. '2026-01-01..2026-02-01')",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of issues to return (1-200)",
					"default":     20,
					"minimum":     1,
					"maximum":     200,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Pagination offset",
					"default":     0,
				},
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "Field to sort by (prefix with '-' for descending)",
				},
			},
			Required: []string{},
		},
	}
}

// getIssueTool returns the tool definition for get_issue
func getIssueTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_issue",
		Description: "Get details of a specific issue by ID or display ID",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"issue_id": map[string]interface{}{
					"type":        "string",
					"description": "UUID of the issue to retrieve",
				},
				"display_id": map[string]interface{}{
					"type":        "integer",
					"description": "Display ID of the issue (numeric ID shown in the UI); used when issue_id is not given",
				},
			},
			Required: []string{},
		},
	}
}

// searchIssuesTool returns the tool definition for search_issues
func searchIssuesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_issues",
		Description: "Search for issues using a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-200)",
					"default":     20,
				},
			},
			Required: []string{"query"},
		},
	}
}

// addCommentTool returns the tool definition for add_comment
func addCommentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_comment",
		Description: "Add a comment to an existing issue",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"issue_id": map[string]interface{}{
					"type":        "string",
					"description": "UUID of the issue to comment on",
				},
				"body": map[string]interface{}{
					"type":        "string",
					"description": "Comment text",
				},
			},
			Required: []string{"issue_id", "body"},
		},
	}
}

// listIssueTypesTool returns the tool definition for list_issue_types
func listIssueTypesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_issue_types",
		Description: "List the issue types and subtypes valid for the project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"include_subtypes": map[string]interface{}{
					"type":        "boolean",
					"description": "Include subtypes in the response",
					"default":     true,
				},
			},
			Required: []string{},
		},
	}
}

// listStatusesTool returns the tool definition for list_statuses
func listStatusesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_statuses",
		Description: "List the issue statuses valid for the project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"subtype_id": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to statuses valid for this issue subtype",
				},
			},
			Required: []string{},
		},
	}
}

// listCustomAttributesTool returns the tool definition for list_custom_attributes
func listCustomAttributesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_custom_attributes",
		Description: "List the custom attribute definitions for the project",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
			Required:   []string{},
		},
	}
}
