package metadata

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource counts fetches and can be made slow or failing.
type fakeSource struct {
	fetches int32
	delay   time.Duration
	err     error
}

func (f *fakeSource) FetchProjectMetadata(ctx context.Context, projectID string) (*ProjectMetadata, error) {
	atomic.AddInt32(&f.fetches, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ProjectMetadata{
		ProjectID:  projectID,
		IssueTypes: []IssueType{{ID: "t1", Name: "Quality", IsActive: true}},
		FetchedAt:  time.Now(),
	}, nil
}

func TestCacheProject(t *testing.T) {
	ctx := context.Background()

	t.Run("miss fetches and caches", func(t *testing.T) {
		src := &fakeSource{}
		cache := NewCache(src, time.Minute, 0, nil)

		meta, err := cache.Project(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, "P1", meta.ProjectID)
		assert.EqualValues(t, 1, atomic.LoadInt32(&src.fetches))

		// Second call within TTL served from cache.
		_, err = cache.Project(ctx, "P1")
		require.NoError(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt32(&src.fetches))
	})

	t.Run("concurrent misses collapse into one fetch", func(t *testing.T) {
		src := &fakeSource{delay: 50 * time.Millisecond}
		cache := NewCache(src, time.Minute, 0, nil)

		const callers = 10
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = cache.Project(ctx, "P1")
			}(i)
		}
		wg.Wait()

		for i := range errs {
			require.NoError(t, errs[i])
		}
		assert.EqualValues(t, 1, atomic.LoadInt32(&src.fetches),
			"single-flight must collapse concurrent fetches")
	})

	t.Run("distinct projects fetch independently", func(t *testing.T) {
		src := &fakeSource{}
		cache := NewCache(src, time.Minute, 0, nil)

		_, err := cache.Project(ctx, "P1")
		require.NoError(t, err)
		_, err = cache.Project(ctx, "P2")
		require.NoError(t, err)
		assert.EqualValues(t, 2, atomic.LoadInt32(&src.fetches))
	})

	t.Run("expired entry is refetched", func(t *testing.T) {
		src := &fakeSource{}
		cache := NewCache(src, 30*time.Millisecond, 0, nil)

		_, err := cache.Project(ctx, "P1")
		require.NoError(t, err)

		time.Sleep(60 * time.Millisecond)

		_, err = cache.Project(ctx, "P1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, atomic.LoadInt32(&src.fetches))
	})

	t.Run("fetch failure is not cached", func(t *testing.T) {
		src := &fakeSource{err: assert.AnError}
		cache := NewCache(src, time.Minute, 0, nil)

		_, err := cache.Project(ctx, "P1")
		require.Error(t, err)

		src.err = nil
		_, err = cache.Project(ctx, "P1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, atomic.LoadInt32(&src.fetches))
	})

	t.Run("invalidate forces refetch", func(t *testing.T) {
		src := &fakeSource{}
		cache := NewCache(src, time.Minute, 0, nil)

		_, err := cache.Project(ctx, "P1")
		require.NoError(t, err)

		cache.Invalidate("P1")

		_, err = cache.Project(ctx, "P1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, atomic.LoadInt32(&src.fetches))
	})
}

func TestProjectMetadataLookups(t *testing.T) {
	meta := &ProjectMetadata{
		Statuses: []Status{
			{ID: "s1", Name: "Open", Category: CategoryOpen, IsDefault: true, SubtypeIDs: []string{"sub1"}},
			{ID: "s2", Name: "Closed", Category: CategoryClosed, SubtypeIDs: []string{"sub1", "sub2"}},
			{ID: "s3", Name: "Draft", Category: CategoryDraft},
		},
		CustomAttributes: []CustomAttribute{
			{ID: "a1", Title: "Trade", DataType: AttrList},
		},
	}

	t.Run("statuses for subtype include unscoped statuses", func(t *testing.T) {
		got := meta.StatusesForSubtype("sub2")
		names := make([]string, len(got))
		for i, s := range got {
			names[i] = s.Name
		}
		assert.ElementsMatch(t, []string{"Closed", "Draft"}, names)
	})

	t.Run("default status for subtype", func(t *testing.T) {
		def := meta.DefaultStatusForSubtype("sub1")
		require.NotNil(t, def)
		assert.Equal(t, "Open", def.Name)

		assert.Nil(t, meta.DefaultStatusForSubtype("sub2"))
	})

	t.Run("attribute lookup is case-insensitive", func(t *testing.T) {
		require.NotNil(t, meta.AttributeByTitle("trade"))
		assert.Nil(t, meta.AttributeByTitle("missing"))
	})
}
