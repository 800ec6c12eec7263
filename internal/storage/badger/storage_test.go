package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := &common.StorageConfig{DataDir: t.TempDir()}
	mgr, err := NewManager(common.GetLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr.(*Manager)
}

func TestContentStorageRoundTrip(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	item := &models.ContentItem{
		ID:            "page_1",
		URL:           "https://Example.com/News",
		NormalizedURL: "https://example.com/News",
		Title:         "News",
		TextContent:   "Some extracted text.",
		ContentType:   models.ContentTypeHTML,
		Hash:          "abc123",
		Size:          1024,
		Depth:         1,
		CapturedAt:    time.Now().UTC(),
	}

	require.NoError(t, mgr.ContentStorage().SaveContent(ctx, item))

	got, err := mgr.ContentStorage().GetContent(ctx, item.NormalizedURL)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.Hash, got.Hash)
	assert.Equal(t, item.Title, got.Title)

	count, err := mgr.ContentStorage().CountContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Second save for the same URL overwrites, not duplicates
	item.Hash = "def456"
	require.NoError(t, mgr.ContentStorage().SaveContent(ctx, item))

	count, err = mgr.ContentStorage().CountContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err = mgr.ContentStorage().GetContent(ctx, item.NormalizedURL)
	require.NoError(t, err)
	assert.Equal(t, "def456", got.Hash)
}

func TestContentStorageNotFound(t *testing.T) {
	mgr := newTestManager(t)

	_, err := mgr.ContentStorage().GetContent(context.Background(), "https://example.com/missing")
	assert.ErrorIs(t, err, badgerhold.ErrNotFound)
}

func TestVisitedStorage(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.VisitedStorage().GetVisited(ctx, "https://example.com/a")
	assert.ErrorIs(t, err, badgerhold.ErrNotFound)

	mark := func(url string, status int, elapsedMs int64) *models.VisitedEntry {
		return &models.VisitedEntry{URL: url, StatusCode: status, ElapsedMs: elapsedMs, VisitedAt: time.Now()}
	}
	require.NoError(t, mgr.VisitedStorage().MarkVisited(ctx, mark("https://example.com/a", 404, 15)))
	require.NoError(t, mgr.VisitedStorage().MarkVisited(ctx, mark("https://example.com/b", 200, 80)))

	// Re-mark refreshes the stored status
	require.NoError(t, mgr.VisitedStorage().MarkVisited(ctx, mark("https://example.com/a", 200, 22)))

	entry, err := mgr.VisitedStorage().GetVisited(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, 200, entry.StatusCode)
	assert.Equal(t, int64(22), entry.ElapsedMs)

	count, err := mgr.VisitedStorage().CountVisited(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	all, err := mgr.VisitedStorage().AllVisited(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://example.com/a", "https://example.com/b"}, all)
}

func TestStateStorage(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	first := &models.ScraperState{
		RunID:     "run_1",
		Status:    models.ScraperStatusCompleted,
		Seeds:     []string{"https://example.com"},
		StartedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	second := &models.ScraperState{
		RunID:     "run_2",
		Status:    models.ScraperStatusRunning,
		Seeds:     []string{"https://example.com"},
		StartedAt: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, mgr.StateStorage().SaveState(ctx, first))
	require.NoError(t, mgr.StateStorage().SaveState(ctx, second))

	got, err := mgr.StateStorage().GetState(ctx, "run_1")
	require.NoError(t, err)
	assert.Equal(t, models.ScraperStatusCompleted, got.Status)

	latest, err := mgr.StateStorage().GetLatestState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run_2", latest.RunID)

	// Status and pages update atomically through one upsert
	second.Status = models.ScraperStatusStopped
	second.PagesProcessed = 17
	require.NoError(t, mgr.StateStorage().SaveState(ctx, second))

	latest, err = mgr.StateStorage().GetLatestState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ScraperStatusStopped, latest.Status)
	assert.Equal(t, 17, latest.PagesProcessed)
}
