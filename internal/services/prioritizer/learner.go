package prioritizer

import (
	"sync"
	"time"
)

// Learning rewards and bounds. The evaluation contribution is clamped so
// a handful of hot patterns cannot drown the static heuristics.
const (
	defaultMaxPatterns = 10000
	rewardRelevant     = 1.0
	rewardNotRelevant  = -0.5
	relevantLinkFloor  = 5
	evaluationClamp    = 2.0
	weightScale        = 0.1
)

// learnedPattern is one URL feature with its accumulated weight
type learnedPattern struct {
	weight   float64
	hits     int64
	lastSeen time.Time
}

// patternLearner accumulates per-feature weights from page outcomes. The
// table is capped; when full, the entry with the lowest
// recency-times-magnitude rank is evicted.
type patternLearner struct {
	mu          sync.Mutex
	patterns    map[string]*learnedPattern
	maxPatterns int
}

func newPatternLearner(maxPatterns int) *patternLearner {
	if maxPatterns < 1 {
		maxPatterns = defaultMaxPatterns
	}
	return &patternLearner{
		patterns:    make(map[string]*learnedPattern),
		maxPatterns: maxPatterns,
	}
}

// evaluate sums the learned weights of the given features, scaled and
// clamped to a bounded contribution
func (l *patternLearner) evaluate(features []string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0.0
	for _, feature := range features {
		if pattern, ok := l.patterns[feature]; ok {
			total += pattern.weight * weightScale
		}
	}

	if total > evaluationClamp {
		return evaluationClamp
	}
	if total < -evaluationClamp {
		return -evaluationClamp
	}
	return total
}

// learn applies a reward to every feature, evicting the weakest pattern
// when the table is full
func (l *patternLearner) learn(features []string, reward float64) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, feature := range features {
		pattern, ok := l.patterns[feature]
		if !ok {
			if len(l.patterns) >= l.maxPatterns {
				l.evictWeakest(now)
			}
			pattern = &learnedPattern{}
			l.patterns[feature] = pattern
		}
		pattern.weight += reward
		pattern.hits++
		pattern.lastSeen = now
	}
}

// size returns the number of tracked patterns
func (l *patternLearner) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.patterns)
}

// evictWeakest drops the pattern with the lowest recency × |weight| rank.
// Caller holds l.mu.
func (l *patternLearner) evictWeakest(now time.Time) {
	var weakestKey string
	weakestRank := 0.0
	first := true

	for key, pattern := range l.patterns {
		age := now.Sub(pattern.lastSeen).Seconds() + 1
		magnitude := pattern.weight
		if magnitude < 0 {
			magnitude = -magnitude
		}
		rank := (magnitude + 0.01) / age
		if first || rank < weakestRank {
			weakestKey = key
			weakestRank = rank
			first = false
		}
	}

	if weakestKey != "" {
		delete(l.patterns, weakestKey)
	}
}
