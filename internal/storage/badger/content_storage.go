package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ContentStorage implements the ContentStorage interface for Badger.
// Records are keyed by normalized URL so a revisit overwrites the previous
// capture of the same page.
type ContentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewContentStorage creates a new ContentStorage instance
func NewContentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ContentStorage {
	return &ContentStorage{
		db:     db,
		logger: logger,
	}
}

// SaveContent inserts or updates a content record
func (s *ContentStorage) SaveContent(ctx context.Context, item *models.ContentItem) error {
	if item.NormalizedURL == "" {
		return fmt.Errorf("content item has no normalized URL")
	}

	if err := s.db.Store().Upsert(item.NormalizedURL, item); err != nil {
		return fmt.Errorf("failed to save content for %s: %w", item.NormalizedURL, err)
	}

	s.logger.Debug().
		Str("url", item.NormalizedURL).
		Str("hash", item.Hash).
		Int64("size", item.Size).
		Msg("Content record saved")

	return nil
}

// GetContent retrieves a content record by normalized URL
func (s *ContentStorage) GetContent(ctx context.Context, normalizedURL string) (*models.ContentItem, error) {
	var item models.ContentItem
	err := s.db.Store().Get(normalizedURL, &item)
	if err == badgerhold.ErrNotFound {
		return nil, badgerhold.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content for %s: %w", normalizedURL, err)
	}
	return &item, nil
}

// CountContent returns the number of stored content records
func (s *ContentStorage) CountContent(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.ContentItem{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count content records: %w", err)
	}
	return int(count), nil
}

// ListContent returns content records ordered by capture time, newest first
func (s *ContentStorage) ListContent(ctx context.Context, limit, offset int) ([]*models.ContentItem, error) {
	query := badgerhold.Where("NormalizedURL").Ne("").SortBy("CapturedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var items []*models.ContentItem
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list content records: %w", err)
	}
	return items, nil
}

// DeleteContent removes a content record
func (s *ContentStorage) DeleteContent(ctx context.Context, normalizedURL string) error {
	err := s.db.Store().Delete(normalizedURL, &models.ContentItem{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete content for %s: %w", normalizedURL, err)
	}
	return nil
}
