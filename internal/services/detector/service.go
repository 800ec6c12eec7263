// -----------------------------------------------------------------------
// Change Detector - per-URL version history and change classification
// -----------------------------------------------------------------------

package detector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	kernelpkg "github.com/ternarybob/lustro/internal/kernel"
	"github.com/ternarybob/lustro/internal/models"
)

// Service implements the ChangeDetector capability. It owns the in-memory
// version map exclusively; persistence goes through the state manager
// capability at lifecycle edges.
type Service struct {
	logger arbor.ILogger
	config *common.Config
	kernel interfaces.Kernel

	mu       sync.Mutex
	history  map[string][]models.PageVersion
	urlLocks map[string]*sync.Mutex

	scraperName   string
	maxVersions   int
	trackVersions bool
	notify        bool
	email         string
}

var _ interfaces.Component = (*Service)(nil)
var _ interfaces.ChangeDetector = (*Service)(nil)

// NewService creates the change detector
func NewService(logger arbor.ILogger, config *common.Config) *Service {
	return &Service{
		logger:   logger,
		config:   config,
		history:  make(map[string][]models.PageVersion),
		urlLocks: make(map[string]*sync.Mutex),
	}
}

// Name implements Component
func (s *Service) Name() string {
	return "change-detector"
}

// Initialize registers the detection domain from config and loads prior
// version history through the state manager
func (s *Service) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	s.kernel = kernel

	s.RegisterScraper(
		"lustro",
		s.config.Detection.MaxVersionsToKeep,
		s.config.Detection.TrackContentVersions,
		s.config.Detection.NotifyOnChanges,
		s.config.Detection.NotificationEmail,
	)

	if manager, ok := kernelpkg.Lookup[interfaces.StateManager](kernel); ok {
		history, err := manager.LoadVersionHistory(ctx)
		if err != nil {
			return fmt.Errorf("failed to load version history: %w", err)
		}
		s.mu.Lock()
		s.history = history
		s.mu.Unlock()

		s.logger.Info().Int("urls", len(history)).Msg("Version history loaded")
	}

	return nil
}

// OnLifecycle persists version history on the terminal events
func (s *Service) OnLifecycle(ctx context.Context, event interfaces.LifecycleEvent) error {
	switch event {
	case interfaces.LifecycleScrapingCompleted, interfaces.LifecycleScrapingStopped:
		if s.kernel == nil {
			return nil
		}
		manager, ok := kernelpkg.Lookup[interfaces.StateManager](s.kernel)
		if !ok {
			return nil
		}
		s.mu.Lock()
		snapshot := make(map[string][]models.PageVersion, len(s.history))
		for url, versions := range s.history {
			snapshot[url] = append([]models.PageVersion(nil), versions...)
		}
		s.mu.Unlock()

		if err := manager.SaveVersionHistory(ctx, snapshot); err != nil {
			return fmt.Errorf("failed to persist version history: %w", err)
		}
	}
	return nil
}

// Close implements Component
func (s *Service) Close() error {
	return nil
}

// RegisterScraper configures the detection domain for a run
func (s *Service) RegisterScraper(name string, maxVersions int, trackVersions bool, notify bool, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scraperName = name
	s.maxVersions = maxVersions
	s.trackVersions = trackVersions
	s.notify = notify
	s.email = email

	if s.maxVersions < 1 {
		s.maxVersions = 1
	}
}

// TrackPageVersion compares the item against the last tracked version of
// its URL and appends a new version. Distinct URLs are tracked in
// parallel; versions of one URL are strictly serialized.
func (s *Service) TrackPageVersion(ctx context.Context, item *models.ContentItem, structured *models.StructuredContent) (models.ChangeType, *models.SignificantChangeReport, error) {
	if item == nil {
		return models.ChangeTypeNone, nil, fmt.Errorf("cannot track nil content item")
	}

	url := item.NormalizedURL
	if url == "" {
		url = item.URL
	}

	lock := s.lockFor(url)
	lock.Lock()
	defer lock.Unlock()

	// The version hash covers the raw body so markup-only edits still
	// register; extracted text only stands in when no body was captured
	hash := item.Hash
	if hash == "" {
		if item.Body != "" {
			hash = HashText(item.Body)
		} else {
			hash = HashText(item.TextContent)
		}
	}

	version := models.PageVersion{
		URL:         url,
		Hash:        hash,
		Text:        item.TextContent,
		Fingerprint: structured.Fingerprint(),
		CapturedAt:  time.Now().UTC(),
	}

	previous, hasPrevious := s.latestVersion(url)

	if !hasPrevious {
		version.ChangeType = models.ChangeTypeInitial
		s.appendVersion(url, version)
		return models.ChangeTypeInitial, nil, nil
	}

	if previous.Hash == hash {
		// Identical refetch still appends, so history records every
		// sighting up to the version cap
		version.ChangeType = models.ChangeTypeNone
		s.appendVersion(url, version)
		return models.ChangeTypeNone, nil, nil
	}

	version.ChangeType = Classify(previous, version)
	s.appendVersion(url, version)

	report := s.buildReport(item, previous, version)
	if report != nil && s.notify {
		s.publishReport(ctx, report)
	}

	s.logger.Debug().
		Str("url", url).
		Str("change_type", string(version.ChangeType)).
		Bool("significant", report != nil).
		Msg("Page version tracked")

	return version.ChangeType, report, nil
}

// History returns a copy of the tracked versions for a URL, oldest first
func (s *Service) History(url string) []models.PageVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PageVersion(nil), s.history[url]...)
}

// buildReport diffs the sentence sets of two versions and produces a
// report when the change crosses the configured threshold
func (s *Service) buildReport(item *models.ContentItem, previous, current models.PageVersion) *models.SignificantChangeReport {
	added, removed, modified := DiffSentences(previous.Text, current.Text)

	changed := len(added) + len(removed) + modified
	if changed <= s.config.Detection.SignificantChangeThreshold {
		return nil
	}

	report := &models.SignificantChangeReport{
		ID:               common.NewReportID(),
		URL:              current.URL,
		Title:            item.Title,
		DetectedAt:       time.Now().UTC(),
		ChangeType:       current.ChangeType,
		AddedSentences:   added,
		RemovedSentences: removed,
		ModifiedCount:    modified,
		ChangedCount:     changed,
		NotifyEmail:      s.email,
	}

	for _, keyword := range s.config.Detection.KeywordAlertList {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		for _, sentence := range added {
			if strings.Contains(strings.ToLower(sentence), strings.ToLower(keyword)) {
				report.Critical = true
				report.MatchedKeywords = append(report.MatchedKeywords, keyword)
				break
			}
		}
	}

	return report
}

func (s *Service) publishReport(ctx context.Context, report *models.SignificantChangeReport) {
	if s.kernel == nil {
		return
	}
	if err := s.kernel.Events().Publish(ctx, interfaces.Event{
		Type:    interfaces.EventSignificantChange,
		Payload: report,
	}); err != nil {
		s.logger.Warn().Err(err).Str("url", report.URL).Msg("Failed to publish change report")
	}
}

// latestVersion returns the newest tracked version of a URL
func (s *Service) latestVersion(url string) (models.PageVersion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.history[url]
	if len(versions) == 0 {
		return models.PageVersion{}, false
	}
	return versions[len(versions)-1], true
}

// appendVersion adds a version, trimming the oldest entries beyond the
// retention cap. With version tracking off only the latest survives.
func (s *Service) appendVersion(url string, version models.PageVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := append(s.history[url], version)

	cap := s.maxVersions
	if !s.trackVersions {
		cap = 1
	}
	if len(versions) > cap {
		versions = versions[len(versions)-cap:]
	}
	s.history[url] = versions
}

// lockFor returns the per-URL mutex, creating it on first sight
func (s *Service) lockFor(url string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.urlLocks[url]
	if !ok {
		lock = &sync.Mutex{}
		s.urlLocks[url] = lock
	}
	return lock
}
