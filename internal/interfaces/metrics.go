package interfaces

import (
	"time"

	"github.com/ternarybob/lustro/internal/models"
)

// MetricsTracker owns the run's counters. All methods are safe for
// concurrent use; Snapshot is a cheap copy suitable for persistence.
type MetricsTracker interface {
	// StartURLRequest records that a fetch began
	StartURLRequest(url string)

	// CompleteURLRequest records a finished fetch with its status code,
	// duration and body size
	CompleteURLRequest(url string, status int, duration time.Duration, bytes int64)

	// RecordFailedRequest records a failed fetch with its failure kind
	RecordFailedRequest(url string, kind models.FailureKind)

	// Snapshot returns a point-in-time copy of all counters
	Snapshot() models.RunMetrics
}
