package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// VisitedStorage implements the VisitedStorage interface for Badger
type VisitedStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVisitedStorage creates a new VisitedStorage instance
func NewVisitedStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VisitedStorage {
	return &VisitedStorage{
		db:     db,
		logger: logger,
	}
}

// MarkVisited upserts the entry for a normalized URL. Re-marking an
// already visited URL refreshes its status code and timing and is not
// an error.
func (s *VisitedStorage) MarkVisited(ctx context.Context, entry *models.VisitedEntry) error {
	if entry == nil || entry.URL == "" {
		return fmt.Errorf("cannot mark empty visited entry")
	}
	if err := s.db.Store().Upsert("visited:"+entry.URL, entry); err != nil {
		return fmt.Errorf("failed to mark %s visited: %w", entry.URL, err)
	}
	return nil
}

// GetVisited loads the visited entry for a normalized URL; ErrNotFound
// when it was never visited
func (s *VisitedStorage) GetVisited(ctx context.Context, normalizedURL string) (*models.VisitedEntry, error) {
	var entry models.VisitedEntry
	err := s.db.Store().Get("visited:"+normalizedURL, &entry)
	if err == badgerhold.ErrNotFound {
		return nil, badgerhold.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load visited entry for %s: %w", normalizedURL, err)
	}
	return &entry, nil
}

// AllVisited returns every visited URL, used to hydrate the in-memory set
// at startup
func (s *VisitedStorage) AllVisited(ctx context.Context) ([]string, error) {
	var entries []models.VisitedEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("URL").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to load visited set: %w", err)
	}

	urls := make([]string, 0, len(entries))
	for _, entry := range entries {
		urls = append(urls, entry.URL)
	}
	return urls, nil
}

// CountVisited returns the size of the persisted visited set
func (s *VisitedStorage) CountVisited(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.VisitedEntry{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count visited set: %w", err)
	}
	return int(count), nil
}
