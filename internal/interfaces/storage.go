package interfaces

import (
	"context"

	"github.com/ternarybob/lustro/internal/models"
)

// ContentStorage persists content records in the KV store
type ContentStorage interface {
	SaveContent(ctx context.Context, item *models.ContentItem) error
	GetContent(ctx context.Context, normalizedURL string) (*models.ContentItem, error)
	CountContent(ctx context.Context) (int, error)
	ListContent(ctx context.Context, limit, offset int) ([]*models.ContentItem, error)
	DeleteContent(ctx context.Context, normalizedURL string) error
}

// VisitedStorage persists the visited set across runs. Each entry keeps
// the last observed status code and response timing for its URL.
type VisitedStorage interface {
	MarkVisited(ctx context.Context, entry *models.VisitedEntry) error
	GetVisited(ctx context.Context, normalizedURL string) (*models.VisitedEntry, error)
	AllVisited(ctx context.Context) ([]string, error)
	CountVisited(ctx context.Context) (int, error)
}

// StateStorage persists scraper run state
type StateStorage interface {
	SaveState(ctx context.Context, state *models.ScraperState) error
	GetState(ctx context.Context, runID string) (*models.ScraperState, error)
	GetLatestState(ctx context.Context) (*models.ScraperState, error)
}

// StorageManager provides access to all storage backends over one store
type StorageManager interface {
	ContentStorage() ContentStorage
	VisitedStorage() VisitedStorage
	StateStorage() StateStorage

	// Close closes the underlying store
	Close() error
}
