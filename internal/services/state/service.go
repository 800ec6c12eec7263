// -----------------------------------------------------------------------
// State Manager - single source of truth for everything the engine
// persists: visited set, content records, run state, version history
// -----------------------------------------------------------------------

package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
	"github.com/ternarybob/lustro/internal/storage/badger"
)

// versionHistoryFileName is the on-disk name of the version history file
const versionHistoryFileName = "version_history.json"

// Service implements the StateManager capability over the badger store
// plus a file artifact writer. The in-memory visited set answers the
// hot-path admission query; the store is its durable mirror.
type Service struct {
	logger  arbor.ILogger
	config  *common.Config
	storage interfaces.StorageManager

	visitedMu sync.RWMutex
	visited   map[string]bool

	artifacts *artifactWriter
}

var _ interfaces.Component = (*Service)(nil)
var _ interfaces.StateManager = (*Service)(nil)

// NewService creates the state manager
func NewService(logger arbor.ILogger, config *common.Config) *Service {
	return &Service{
		logger:    logger,
		config:    config,
		visited:   make(map[string]bool),
		artifacts: newArtifactWriter(config.Storage.DataDir, logger),
	}
}

// Name implements Component
func (s *Service) Name() string {
	return "state-manager"
}

// Initialize opens the store under the data directory and hydrates the
// in-memory visited set from prior runs when persistence is enabled
func (s *Service) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	if err := os.MkdirAll(s.config.Storage.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	manager, err := badger.NewManager(s.logger, &s.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	s.storage = manager

	if s.config.Storage.EnablePersistentState {
		urls, err := manager.VisitedStorage().AllVisited(ctx)
		if err != nil {
			return fmt.Errorf("failed to hydrate visited set: %w", err)
		}
		s.visitedMu.Lock()
		for _, u := range urls {
			s.visited[u] = true
		}
		s.visitedMu.Unlock()

		s.logger.Info().Int("visited", len(urls)).Msg("Visited set hydrated from prior runs")
	}

	return nil
}

// OnLifecycle implements Component. Terminal persistence is driven by the
// kernel through SaveState; nothing extra to do here.
func (s *Service) OnLifecycle(ctx context.Context, event interfaces.LifecycleEvent) error {
	return nil
}

// Close closes the underlying store
func (s *Service) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}

// HasVisited reports whether the normalized URL has been completed, in
// this run or any prior persisted one. O(1) on the in-memory set.
func (s *Service) HasVisited(url string) bool {
	s.visitedMu.RLock()
	defer s.visitedMu.RUnlock()
	return s.visited[url]
}

// MarkVisited records the normalized URL as visited with the last
// observed status code. Idempotent: the set insert and store upsert
// both tolerate repeats, refreshing status and timing.
func (s *Service) MarkVisited(ctx context.Context, url string, statusCode int, elapsed time.Duration) error {
	s.visitedMu.Lock()
	s.visited[url] = true
	s.visitedMu.Unlock()

	entry := &models.VisitedEntry{
		URL:        url,
		StatusCode: statusCode,
		ElapsedMs:  elapsed.Milliseconds(),
		VisitedAt:  time.Now().UTC(),
	}
	if err := s.storage.VisitedStorage().MarkVisited(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist visited mark: %w", err)
	}
	return nil
}

// VisitedCount returns the size of the visited set
func (s *Service) VisitedCount() int {
	s.visitedMu.RLock()
	defer s.visitedMu.RUnlock()
	return len(s.visited)
}

// SaveContent persists a content record and writes its page artifacts.
// The store record is authoritative; a failed artifact write downgrades
// to FileArtifactMissing rather than failing the save.
func (s *Service) SaveContent(ctx context.Context, item *models.ContentItem) error {
	if item == nil {
		return fmt.Errorf("cannot save nil content item")
	}
	if item.ID == "" {
		item.ID = common.NewContentID()
	}
	if item.Hash == "" {
		// Hash the raw body when we have one; extracted text is only a
		// stand-in for body-less items like document renditions
		if item.Body != "" {
			item.Hash = common.HashBytes([]byte(item.Body))
		} else {
			item.Hash = HashText(item.TextContent)
		}
	}
	if item.CapturedAt.IsZero() {
		item.CapturedAt = time.Now().UTC()
	}
	if item.Size == 0 {
		item.Size = int64(len(item.Body))
	}

	if err := s.artifacts.writePageArtifacts(item); err != nil {
		s.logger.Warn().
			Err(err).
			Str("url", item.URL).
			Msg("Page artifact write failed; record keeps FileArtifactMissing")
		item.FileArtifactMissing = true
	}

	stored := *item
	if !s.config.Storage.StoreContentInDatabase {
		stored.Body = ""
		stored.Markdown = ""
	}

	if err := s.storage.ContentStorage().SaveContent(ctx, &stored); err != nil {
		return fmt.Errorf("failed to save content for %s: %w", item.URL, err)
	}

	s.logger.Debug().
		Str("url", item.URL).
		Str("hash", item.Hash).
		Int64("size", item.Size).
		Msg("Content saved")
	return nil
}

// GetContent loads the most recent content record for a normalized URL
func (s *Service) GetContent(ctx context.Context, url string) (*models.ContentItem, bool, error) {
	item, err := s.storage.ContentStorage().GetContent(ctx, url)
	if err != nil {
		if err == badger.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return item, true, nil
}

// SaveDocumentArtifacts writes a binary document plus its extracted text
// and metadata under documents/
func (s *Service) SaveDocumentArtifacts(ctx context.Context, url string, raw []byte, ext string, text string, metadata map[string]interface{}) error {
	return s.artifacts.writeDocumentArtifacts(url, raw, ext, text, metadata)
}

// SaveState upserts the run state. Status and timing travel in one
// record so a reloaded state is never split across writes.
func (s *Service) SaveState(ctx context.Context, state *models.ScraperState) error {
	if state == nil {
		return fmt.Errorf("cannot save nil state")
	}
	if err := s.storage.StateStorage().SaveState(ctx, state); err != nil {
		return fmt.Errorf("failed to save scraper state: %w", err)
	}
	return nil
}

// LoadState returns the most recently persisted run state, if any
func (s *Service) LoadState(ctx context.Context) (*models.ScraperState, bool, error) {
	state, err := s.storage.StateStorage().GetLatestState(ctx)
	if err != nil {
		if err == badger.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return state, true, nil
}

// LoadVersionHistory reads version_history.json. A missing file is an
// empty history, not an error.
func (s *Service) LoadVersionHistory(ctx context.Context) (map[string][]models.PageVersion, error) {
	path := filepath.Join(s.config.Storage.DataDir, versionHistoryFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]models.PageVersion), nil
		}
		return nil, fmt.Errorf("failed to read version history: %w", err)
	}

	history := make(map[string][]models.PageVersion)
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse version history: %w", err)
	}
	return history, nil
}

// SaveVersionHistory writes version_history.json atomically via a temp
// file and rename
func (s *Service) SaveVersionHistory(ctx context.Context, history map[string][]models.PageVersion) error {
	path := filepath.Join(s.config.Storage.DataDir, versionHistoryFileName)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode version history: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write version history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace version history: %w", err)
	}

	s.logger.Debug().Int("urls", len(history)).Msg("Version history persisted")
	return nil
}

// HashText returns the hex-encoded SHA-256 of a text body
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
