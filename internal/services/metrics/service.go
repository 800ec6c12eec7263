// -----------------------------------------------------------------------
// Metrics Tracker - owns all run counters; everything else reads snapshots
// -----------------------------------------------------------------------

package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
)

// progressInterval is how many completed requests pass between
// crawl_progress events
const progressInterval = 25

// Service implements the MetricsTracker capability. Scalar counters are
// atomics; the classification maps are owned by this service alone behind
// one mutex.
type Service struct {
	logger arbor.ILogger
	kernel interfaces.Kernel

	requestsStarted   atomic.Int64
	requestsCompleted atomic.Int64
	requestsFailed    atomic.Int64
	bytesFetched      atomic.Int64

	mu             sync.Mutex
	byStatusClass  map[string]int64
	failuresByKind map[string]int64
	perDomain      map[string]*models.DomainMetrics
	sessionStart   time.Time
	sessionEnd     *time.Time
}

var _ interfaces.Component = (*Service)(nil)
var _ interfaces.MetricsTracker = (*Service)(nil)

// NewService creates the metrics tracker
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger:         logger,
		byStatusClass:  make(map[string]int64),
		failuresByKind: make(map[string]int64),
		perDomain:      make(map[string]*models.DomainMetrics),
	}
}

// Name implements Component
func (s *Service) Name() string {
	return "metrics"
}

// Initialize implements Component
func (s *Service) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	s.kernel = kernel
	return nil
}

// OnLifecycle ties session timing to the run lifecycle
func (s *Service) OnLifecycle(ctx context.Context, event interfaces.LifecycleEvent) error {
	switch event {
	case interfaces.LifecycleScrapingStarted:
		s.mu.Lock()
		s.sessionStart = time.Now().UTC()
		s.sessionEnd = nil
		s.mu.Unlock()
	case interfaces.LifecycleScrapingCompleted, interfaces.LifecycleScrapingStopped:
		now := time.Now().UTC()
		s.mu.Lock()
		if s.sessionEnd == nil {
			s.sessionEnd = &now
		}
		s.mu.Unlock()
	}
	return nil
}

// Close implements Component
func (s *Service) Close() error {
	return nil
}

// StartURLRequest records that a fetch began
func (s *Service) StartURLRequest(url string) {
	s.requestsStarted.Add(1)

	domain := common.URLHost(url)
	if domain == "" {
		return
	}
	s.mu.Lock()
	s.domainLocked(domain).Requests++
	s.mu.Unlock()
}

// CompleteURLRequest records a finished fetch
func (s *Service) CompleteURLRequest(url string, status int, duration time.Duration, bytes int64) {
	completed := s.requestsCompleted.Add(1)
	s.bytesFetched.Add(bytes)

	s.mu.Lock()
	s.byStatusClass[statusClass(status)]++
	if domain := common.URLHost(url); domain != "" {
		d := s.domainLocked(domain)
		d.BytesFetched += bytes
		d.TotalDuration += duration
	}
	s.mu.Unlock()

	if completed%progressInterval == 0 {
		s.publishProgress()
	}
}

// RecordFailedRequest records a failed fetch with its category
func (s *Service) RecordFailedRequest(url string, kind models.FailureKind) {
	s.requestsFailed.Add(1)

	s.mu.Lock()
	s.failuresByKind[string(kind)]++
	if domain := common.URLHost(url); domain != "" {
		s.domainLocked(domain).Failures++
	}
	s.mu.Unlock()
}

// Snapshot returns a point-in-time copy of all counters
func (s *Service) Snapshot() models.RunMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := models.RunMetrics{
		RequestsStarted:   s.requestsStarted.Load(),
		RequestsCompleted: s.requestsCompleted.Load(),
		RequestsFailed:    s.requestsFailed.Load(),
		BytesFetched:      s.bytesFetched.Load(),
		ByStatusClass:     make(map[string]int64, len(s.byStatusClass)),
		FailuresByKind:    make(map[string]int64, len(s.failuresByKind)),
		PerDomain:         make(map[string]models.DomainMetrics, len(s.perDomain)),
		SessionStart:      s.sessionStart,
		SessionEnd:        s.sessionEnd,
	}

	for class, n := range s.byStatusClass {
		snapshot.ByStatusClass[class] = n
	}
	for kind, n := range s.failuresByKind {
		snapshot.FailuresByKind[kind] = n
	}
	for domain, d := range s.perDomain {
		snapshot.PerDomain[domain] = *d
	}

	switch {
	case s.sessionStart.IsZero():
		// Session never started; leave duration zero
	case s.sessionEnd != nil:
		snapshot.TotalDuration = s.sessionEnd.Sub(s.sessionStart)
	default:
		snapshot.TotalDuration = time.Since(s.sessionStart)
	}

	return snapshot
}

// domainLocked returns the mutable per-domain counters, creating them on
// first sight. Caller holds s.mu.
func (s *Service) domainLocked(domain string) *models.DomainMetrics {
	d, ok := s.perDomain[domain]
	if !ok {
		d = &models.DomainMetrics{}
		s.perDomain[domain] = d
	}
	return d
}

func (s *Service) publishProgress() {
	if s.kernel == nil {
		return
	}
	snapshot := s.Snapshot()
	if err := s.kernel.Events().Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventCrawlProgress,
		Payload: snapshot,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish crawl progress")
	}
}

// statusClass buckets an HTTP status code. 429 gets its own bucket since
// rate limiting needs to be visible separately from other client errors.
func statusClass(status int) string {
	switch {
	case status == 429:
		return "429"
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}
