package prioritizer

import (
	"sync"

	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/models"
)

// Strategy weights. A domain that keeps succeeding earns a bounded boost;
// one that keeps failing is pushed down without ever pinning the score to
// zero on its own.
const (
	domainSuccessWeight = 0.5
	domainMinSamples    = 3
	shallowDepthBonus   = 0.2
	shallowDepthCutoff  = 2
)

// domainStats accumulates per-domain outcome counts
type domainStats struct {
	successes int64
	failures  int64
	depthSum  int64
	pages     int64
}

// crawlStrategy adjusts priorities from per-domain run feedback
type crawlStrategy struct {
	mu      sync.Mutex
	domains map[string]*domainStats
}

func newCrawlStrategy() *crawlStrategy {
	return &crawlStrategy{
		domains: make(map[string]*domainStats),
	}
}

// priority returns the strategy's contribution for a URL based on how its
// domain has performed so far this run
func (s *crawlStrategy) priority(rawURL string) float64 {
	domain := common.URLHost(rawURL)
	if domain == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.domains[domain]
	if !ok {
		return 0
	}

	total := stats.successes + stats.failures
	if total < domainMinSamples {
		return 0
	}

	// Centered success ratio: all-success +0.5, all-failure -0.5
	ratio := float64(stats.successes)/float64(total) - 0.5
	contribution := ratio * 2 * domainSuccessWeight

	// Domains whose productive pages sit shallow get a small extra push
	if stats.pages > 0 && float64(stats.depthSum)/float64(stats.pages) <= shallowDepthCutoff {
		contribution += shallowDepthBonus * (float64(stats.successes) / float64(total))
	}

	return contribution
}

// record folds one page outcome into the domain's stats
func (s *crawlStrategy) record(outcome *models.PageOutcome) {
	domain := outcome.Domain
	if domain == "" {
		domain = common.URLHost(outcome.URL)
	}
	if domain == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.domains[domain]
	if !ok {
		stats = &domainStats{}
		s.domains[domain] = stats
	}

	if outcome.Failed {
		stats.failures++
	} else {
		stats.successes++
		stats.depthSum += int64(outcome.Depth)
		stats.pages++
	}
}
