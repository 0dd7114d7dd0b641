package metadata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/constructo/acc-issues-mcp/internal/api"
)

// Source produces a fresh metadata snapshot for a project.
type Source interface {
	FetchProjectMetadata(ctx context.Context, projectID string) (*ProjectMetadata, error)
}

// APISource fetches project metadata from the remote issues API.
type APISource struct {
	client *api.Client
}

// NewAPISource creates a Source backed by the API client.
func NewAPISource(client *api.Client) *APISource {
	return &APISource{client: client}
}

// FetchProjectMetadata pulls issue types (with subtypes), statuses, and
// custom attribute definitions in one pass.
func (s *APISource) FetchProjectMetadata(ctx context.Context, projectID string) (*ProjectMetadata, error) {
	meta := &ProjectMetadata{
		ProjectID: projectID,
		FetchedAt: time.Now(),
	}

	var typesPage struct {
		Results []IssueType `json:"results"`
	}
	typesPath := fmt.Sprintf("projects/%s/issue-types", projectID)
	if err := s.client.Get(ctx, typesPath, url.Values{"include": {"subtypes"}}, &typesPage); err != nil {
		return nil, fmt.Errorf("fetching issue types: %w", err)
	}
	meta.IssueTypes = typesPage.Results

	var statusPage struct {
		Results []Status `json:"results"`
	}
	statusPath := fmt.Sprintf("projects/%s/issue-statuses", projectID)
	if err := s.client.Get(ctx, statusPath, nil, &statusPage); err != nil {
		return nil, fmt.Errorf("fetching statuses: %w", err)
	}
	meta.Statuses = statusPage.Results

	var attrPage struct {
		Results []CustomAttribute `json:"results"`
	}
	attrPath := fmt.Sprintf("projects/%s/issue-attribute-definitions", projectID)
	if err := s.client.Get(ctx, attrPath, nil, &attrPage); err != nil {
		return nil, fmt.Errorf("fetching attribute definitions: %w", err)
	}
	meta.CustomAttributes = attrPage.Results

	return meta, nil
}
