package models

import (
	"time"
)

// VisitedEntry is the durable record for one visited URL: the last
// observed status code and response timing alongside the visit timestamp
type VisitedEntry struct {
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	VisitedAt  time.Time `json:"visited_at"`
}

// PageOutcome is the feedback record produced after a URL finishes
// processing. The prioritizer and metrics consume it; nothing in it refers
// back to the components that produced it.
type PageOutcome struct {
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	Depth       int    `json:"depth"`
	StatusCode  int    `json:"status_code"`
	LinksFound  int    `json:"links_found"`
	Significant bool   `json:"significant"` // A significant change was detected on this visit
	Failed      bool   `json:"failed"`
}
