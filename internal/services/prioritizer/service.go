// -----------------------------------------------------------------------
// Adaptive Prioritizer - URL scoring from learned patterns and feedback
// -----------------------------------------------------------------------

package prioritizer

import (
	"context"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
)

// Pattern bonus weights. A date-shaped path signals fresh content; deep
// paths and account/utility pages are down-ranked.
const (
	baseScore       = 1.0
	datePathBonus   = 0.5
	positiveBonus   = 0.3
	negativePenalty = 0.4
	depthPenalty    = 0.1
	maxPlainDepth   = 4
	hitsDamping     = 0.1
)

var positiveKeywords = []string{"news", "update", "release", "announcement", "regulation"}
var negativeKeywords = []string{"login", "signup", "register", "comment", "print"}

// datePathPattern matches /YYYY/M/D/ style path segments
var datePathPattern = regexp.MustCompile(`/(19|20)\d{2}/\d{1,2}/\d{1,2}(/|$)`)

// Service implements the Prioritizer capability: a static pattern bonus
// plus a learned component fed back from page outcomes
type Service struct {
	logger   arbor.ILogger
	learner  *patternLearner
	strategy *crawlStrategy

	mu   sync.Mutex
	hits map[string]int64
}

var _ interfaces.Component = (*Service)(nil)
var _ interfaces.Prioritizer = (*Service)(nil)

// NewService creates the adaptive prioritizer
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger:   logger,
		learner:  newPatternLearner(defaultMaxPatterns),
		strategy: newCrawlStrategy(),
		hits:     make(map[string]int64),
	}
}

// Name implements Component
func (s *Service) Name() string {
	return "prioritizer"
}

// Initialize implements Component
func (s *Service) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	return nil
}

// OnLifecycle implements Component
func (s *Service) OnLifecycle(ctx context.Context, event interfaces.LifecycleEvent) error {
	return nil
}

// Close implements Component
func (s *Service) Close() error {
	return nil
}

// Score returns the priority of a URL, never negative
func (s *Service) Score(rawURL string) float64 {
	score := baseScore +
		s.learner.evaluate(urlFeatures(rawURL)) +
		s.strategy.priority(rawURL) +
		patternBonus(rawURL) -
		math.Log(1+float64(s.hitCount(rawURL)))*hitsDamping

	if score < 0 {
		return 0
	}
	return score
}

// PrioritizeURLs returns the top k URLs by score. Ties keep their input
// order and the input slice is not modified.
func (s *Service) PrioritizeURLs(urls []string, k int) []string {
	if k <= 0 || len(urls) == 0 {
		return nil
	}

	type scored struct {
		url   string
		score float64
		index int
	}

	ranked := make([]scored, len(urls))
	for i, u := range urls {
		ranked[i] = scored{url: u, score: s.Score(u), index: i}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].index < ranked[j].index
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	top := make([]string, k)
	for i := 0; i < k; i++ {
		top[i] = ranked[i].url
	}
	return top
}

// RecordOutcome feeds a processed page back into the learner and
// strategy. Significant changes and link-rich pages count as relevant.
func (s *Service) RecordOutcome(outcome *models.PageOutcome) {
	if outcome == nil {
		return
	}

	s.mu.Lock()
	s.hits[outcome.URL]++
	s.mu.Unlock()

	relevant := outcome.Significant || outcome.LinksFound > relevantLinkFloor

	reward := rewardNotRelevant
	if relevant {
		reward = rewardRelevant
	}
	if !outcome.Failed {
		s.learner.learn(urlFeatures(outcome.URL), reward)
	}

	s.strategy.record(outcome)

	s.logger.Debug().
		Str("url", outcome.URL).
		Bool("relevant", relevant).
		Bool("failed", outcome.Failed).
		Msg("Page outcome recorded")
}

func (s *Service) hitCount(url string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[url]
}

// patternBonus applies the static URL shape heuristics
func patternBonus(rawURL string) float64 {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}

	bonus := 0.0
	lowerPath := strings.ToLower(u.Path)
	lowerURL := strings.ToLower(rawURL)

	if datePathPattern.MatchString(lowerPath) {
		bonus += datePathBonus
	}
	for _, keyword := range positiveKeywords {
		if strings.Contains(lowerURL, keyword) {
			bonus += positiveBonus
		}
	}
	for _, keyword := range negativeKeywords {
		if strings.Contains(lowerURL, keyword) {
			bonus -= negativePenalty
		}
	}

	segments := pathSegments(u.Path)
	if extra := len(segments) - maxPlainDepth; extra > 0 {
		bonus -= depthPenalty * float64(extra)
	}

	return bonus
}

// urlFeatures extracts the learnable features of a URL: its path
// segments and query keys
func urlFeatures(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	features := pathSegments(strings.ToLower(u.Path))
	for key := range u.Query() {
		features = append(features, "?"+strings.ToLower(key))
	}
	return features
}

func pathSegments(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
