package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// StateStorage implements the StateStorage interface for Badger. Each run
// is one record keyed by run ID; status and timing always travel together
// in a single upsert.
type StateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewStateStorage creates a new StateStorage instance
func NewStateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StateStorage {
	return &StateStorage{
		db:     db,
		logger: logger,
	}
}

// SaveState inserts or updates a run state record
func (s *StateStorage) SaveState(ctx context.Context, state *models.ScraperState) error {
	if state.RunID == "" {
		return fmt.Errorf("scraper state has no run ID")
	}

	if err := s.db.Store().Upsert(state.RunID, state); err != nil {
		return fmt.Errorf("failed to save state for run %s: %w", state.RunID, err)
	}

	s.logger.Debug().
		Str("run_id", state.RunID).
		Str("status", string(state.Status)).
		Int("pages", state.PagesProcessed).
		Msg("Scraper state saved")

	return nil
}

// GetState retrieves the state record for a specific run
func (s *StateStorage) GetState(ctx context.Context, runID string) (*models.ScraperState, error) {
	var state models.ScraperState
	err := s.db.Store().Get(runID, &state)
	if err == badgerhold.ErrNotFound {
		return nil, badgerhold.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state for run %s: %w", runID, err)
	}
	return &state, nil
}

// GetLatestState returns the most recently started run, if any
func (s *StateStorage) GetLatestState(ctx context.Context) (*models.ScraperState, error) {
	var states []*models.ScraperState
	query := badgerhold.Where("RunID").Ne("").SortBy("StartedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&states, query); err != nil {
		return nil, fmt.Errorf("failed to query latest state: %w", err)
	}
	if len(states) == 0 {
		return nil, badgerhold.ErrNotFound
	}
	return states[0], nil
}
