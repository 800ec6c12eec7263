package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/lustro/internal/models"
)

// StateManager is the single source of truth for everything the engine
// persists: the visited set, content records and artifacts, run state and
// the version history file. No other component touches disk.
type StateManager interface {
	// HasVisited reports whether the normalized URL was completed in this
	// run or, with persistent state enabled, any prior run. O(1).
	HasVisited(url string) bool

	// MarkVisited records the normalized URL as visited with the last
	// observed status code and response time. Idempotent upsert: a
	// re-mark refreshes status and timing.
	MarkVisited(ctx context.Context, url string, statusCode int, elapsed time.Duration) error

	// VisitedCount returns the size of the visited set
	VisitedCount() int

	// SaveContent persists a content record and writes its file artifacts
	// (raw body, extracted text, metadata). An artifact write failure is
	// downgraded to ContentItem.FileArtifactMissing, not an error.
	SaveContent(ctx context.Context, item *models.ContentItem) error

	// GetContent loads the most recent content record for a normalized URL
	GetContent(ctx context.Context, url string) (*models.ContentItem, bool, error)

	// SaveDocumentArtifacts writes a binary document and its companions
	// (raw bytes, extracted text, metadata JSON) under documents/
	SaveDocumentArtifacts(ctx context.Context, url string, raw []byte, ext string, text string, metadata map[string]interface{}) error

	// SaveState persists the run state; status and timing are written
	// atomically in one upsert
	SaveState(ctx context.Context, state *models.ScraperState) error

	// LoadState returns the most recently persisted run state, if any
	LoadState(ctx context.Context) (*models.ScraperState, bool, error)

	// LoadVersionHistory reads version_history.json; a missing file yields
	// an empty history, not an error
	LoadVersionHistory(ctx context.Context) (map[string][]models.PageVersion, error)

	// SaveVersionHistory writes version_history.json atomically
	SaveVersionHistory(ctx context.Context, history map[string][]models.PageVersion) error
}
