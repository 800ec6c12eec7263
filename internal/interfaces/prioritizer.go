package interfaces

import (
	"github.com/ternarybob/lustro/internal/models"
)

// Prioritizer scores candidate URLs so the frontier fetches the most
// promising pages first, and learns from per-page outcomes as the run
// progresses
type Prioritizer interface {
	// Score returns the priority of a URL, never negative
	Score(url string) float64

	// PrioritizeURLs returns the top k URLs by score. Ties keep their
	// input order, and the input slice is not modified.
	PrioritizeURLs(urls []string, k int) []string

	// RecordOutcome feeds the result of a processed page back into the
	// pattern learner and crawl strategy
	RecordOutcome(outcome *models.PageOutcome)
}
