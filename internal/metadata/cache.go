package metadata

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize bounds how many projects are cached at once.
const DefaultCacheSize = 32

// Cache holds per-project schema snapshots with a time-to-live. A miss
// or an expired entry triggers a remote fetch; concurrent requests for
// the same project collapse into one fetch.
type Cache struct {
	source Source
	ttl    time.Duration
	lru    *expirable.LRU[string, *ProjectMetadata]
	group  singleflight.Group
	logger *slog.Logger
}

// NewCache creates a metadata cache. size <= 0 falls back to
// DefaultCacheSize.
func NewCache(source Source, ttl time.Duration, size int, logger *slog.Logger) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source: source,
		ttl:    ttl,
		lru:    expirable.NewLRU[string, *ProjectMetadata](size, nil, ttl),
		logger: logger,
	}
}

// Project returns the cached metadata for projectID, fetching it when
// absent or expired. The fetch path is single-flighted per project.
func (c *Cache) Project(ctx context.Context, projectID string) (*ProjectMetadata, error) {
	if meta, ok := c.lru.Get(projectID); ok {
		return meta, nil
	}

	v, err, shared := c.group.Do(projectID, func() (interface{}, error) {
		// A concurrent flight may have populated the entry while this
		// caller waited on the group.
		if meta, ok := c.lru.Get(projectID); ok {
			return meta, nil
		}

		meta, err := c.source.FetchProjectMetadata(ctx, projectID)
		if err != nil {
			return nil, err
		}
		c.lru.Add(projectID, meta)
		c.logger.Debug("project metadata refreshed",
			"project_id", projectID,
			"issue_types", len(meta.IssueTypes),
			"statuses", len(meta.Statuses),
			"custom_attributes", len(meta.CustomAttributes))
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("metadata fetch shared with concurrent caller", "project_id", projectID)
	}
	return v.(*ProjectMetadata), nil
}

// Invalidate drops the cached entry for projectID, forcing the next
// Project call to fetch.
func (c *Cache) Invalidate(projectID string) {
	c.lru.Remove(projectID)
}
