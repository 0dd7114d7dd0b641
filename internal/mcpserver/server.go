package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/constructo/acc-issues-mcp/internal/api"
	"github.com/constructo/acc-issues-mcp/internal/metadata"
)

const (
	// ServerName is the MCP server name
	ServerName = "acc-issues-mcp"
	// ServerVersion is the current server version
	ServerVersion = "0.2.0"
)

// IssuesAPI is the slice of the API client the tool handlers use.
type IssuesAPI interface {
	CreateIssue(ctx context.Context, projectID string, payload api.IssuePayload) (*api.Issue, error)
	UpdateIssue(ctx context.Context, projectID, issueID string, payload api.IssuePayload) (*api.Issue, error)
	GetIssue(ctx context.Context, projectID, issueID string) (*api.Issue, error)
	ListIssues(ctx context.Context, projectID string, query api.ListIssuesQuery) (*api.IssueList, error)
	AddComment(ctx context.Context, projectID, issueID, body string) (*api.Comment, error)
}

// MetadataCache is the slice of the metadata cache the handlers use.
type MetadataCache interface {
	Project(ctx context.Context, projectID string) (*metadata.ProjectMetadata, error)
	Invalidate(projectID string)
}

// Server wraps the MCP server with application dependencies.
type Server struct {
	mcp       *server.MCPServer
	issues    IssuesAPI
	cache     MetadataCache
	projectID string
	logger    *slog.Logger
}

// NewServer creates the MCP server and registers every tool.
func NewServer(issues IssuesAPI, cache MetadataCache, projectID string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		issues:    issues,
		cache:     cache,
		projectID: projectID,
		logger:    logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	s.mcp.AddTool(createIssueTool(), s.handleCreateIssue)
	s.mcp.AddTool(updateIssueTool(), s.handleUpdateIssue)
	s.mcp.AddTool(listIssuesTool(), s.handleListIssues)
	s.mcp.AddTool(getIssueTool(), s.handleGetIssue)
	s.mcp.AddTool(searchIssuesTool(), s.handleSearchIssues)
	s.mcp.AddTool(addCommentTool(), s.handleAddComment)
	s.mcp.AddTool(listIssueTypesTool(), s.handleListIssueTypes)
	s.mcp.AddTool(listStatusesTool(), s.handleListStatuses)
	s.mcp.AddTool(listCustomAttributesTool(), s.handleListCustomAttributes)
}
