package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	content interfaces.ContentStorage
	visited interfaces.VisitedStorage
	state   interfaces.StateStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		content: NewContentStorage(db, logger),
		visited: NewVisitedStorage(db, logger),
		state:   NewStateStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Str("path", db.Path()).Msg("Badger storage manager initialized")

	return manager, nil
}

// ContentStorage returns the content record storage
func (m *Manager) ContentStorage() interfaces.ContentStorage {
	return m.content
}

// VisitedStorage returns the visited set storage
func (m *Manager) VisitedStorage() interfaces.VisitedStorage {
	return m.visited
}

// StateStorage returns the run state storage
func (m *Manager) StateStorage() interfaces.StateStorage {
	return m.state
}

// Close compacts the value log and closes the database connection
func (m *Manager) Close() error {
	if err := m.db.Compact(); err != nil {
		m.logger.Warn().Err(err).Msg("Value-log compaction failed")
	}
	return m.db.Close()
}
