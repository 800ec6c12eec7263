package models

import (
	"time"
)

// ScraperStatus represents the lifecycle state of a scrape run
type ScraperStatus string

const (
	ScraperStatusInitializing ScraperStatus = "initializing"
	ScraperStatusRunning      ScraperStatus = "running"
	ScraperStatusCompleted    ScraperStatus = "completed"
	ScraperStatusStopped      ScraperStatus = "stopped"
	ScraperStatusFailed       ScraperStatus = "failed"
)

// IsTerminal reports whether the status is a final state
func (s ScraperStatus) IsTerminal() bool {
	return s == ScraperStatusCompleted || s == ScraperStatusStopped || s == ScraperStatusFailed
}

// ScraperState is the persisted aggregate for a scrape run. Status and
// timing are always written together so a reloaded state is never split
// across two runs.
type ScraperState struct {
	RunID          string        `json:"run_id"`
	Status         ScraperStatus `json:"status"`
	Seeds          []string      `json:"seeds"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	PagesProcessed int           `json:"pages_processed"`
	LastError      string        `json:"last_error,omitempty"`
	Metrics        RunMetrics    `json:"metrics"`
}

// FailureKind categorizes request failures for metrics and the error ring
type FailureKind string

const (
	FailureKindTimeout     FailureKind = "timeout"
	FailureKindNetwork     FailureKind = "network"
	FailureKindClientError FailureKind = "client_error"
	FailureKindServerError FailureKind = "server_error"
	FailureKindRobots      FailureKind = "robots"
	FailureKindCanceled    FailureKind = "canceled"
)

// RunMetrics is a point-in-time snapshot of crawl counters. The live
// counters are owned by the metrics service; this copy is what gets
// persisted and reported.
type RunMetrics struct {
	RequestsStarted   int64                    `json:"requests_started"`
	RequestsCompleted int64                    `json:"requests_completed"`
	RequestsFailed    int64                    `json:"requests_failed"`
	ByStatusClass     map[string]int64         `json:"by_status_class,omitempty"`  // "2xx", "3xx", "4xx", "429", "5xx"
	FailuresByKind    map[string]int64         `json:"failures_by_kind,omitempty"` // keyed by FailureKind
	PerDomain         map[string]DomainMetrics `json:"per_domain,omitempty"`
	BytesFetched      int64                    `json:"bytes_fetched"`
	SessionStart      time.Time                `json:"session_start"`
	SessionEnd        *time.Time               `json:"session_end,omitempty"`
	TotalDuration     time.Duration            `json:"total_duration"`
}

// DomainMetrics aggregates per-domain request accounting
type DomainMetrics struct {
	Requests      int64         `json:"requests"`
	Failures      int64         `json:"failures"`
	BytesFetched  int64         `json:"bytes_fetched"`
	TotalDuration time.Duration `json:"total_duration"`
}

// ScrapeError is one entry in the kernel's bounded error ring
type ScrapeError struct {
	URL        string    `json:"url"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
