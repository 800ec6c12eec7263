package models

import (
	"time"
)

// ChangeType classifies the difference between two versions of a page
type ChangeType string

const (
	ChangeTypeInitial   ChangeType = "initial"   // First sighting of a URL
	ChangeTypeNone      ChangeType = "none"      // Hash unchanged
	ChangeTypeMinor     ChangeType = "minor"     // Small textual edit
	ChangeTypeModerate  ChangeType = "moderate"  // Substantial textual edit
	ChangeTypeMajor     ChangeType = "major"     // Page largely rewritten
	ChangeTypeStructure ChangeType = "structure" // Element shape shifted, text similar
	ChangeTypeFormat    ChangeType = "format"    // Whitespace/formatting only
	ChangeTypeRemoved   ChangeType = "removed"   // Content disappeared
)

// IsChange reports whether the type represents actual content movement
func (c ChangeType) IsChange() bool {
	return c != ChangeTypeInitial && c != ChangeTypeNone
}

// PageVersion is one tracked snapshot of a URL's extracted text
type PageVersion struct {
	URL         string               `json:"url"`
	Hash        string               `json:"hash"`
	Text        string               `json:"text,omitempty"`
	Fingerprint StructureFingerprint `json:"fingerprint"`
	CapturedAt  time.Time            `json:"captured_at"`
	ChangeType  ChangeType           `json:"change_type"`
}

// SignificantChangeReport is published on the event stream when a page
// change crosses the configured sentence threshold. NotifyEmail is carried
// as metadata for downstream consumers; the engine itself never sends mail.
type SignificantChangeReport struct {
	ID               string     `json:"id"` // chg_{uuid}
	URL              string     `json:"url"`
	Title            string     `json:"title,omitempty"`
	DetectedAt       time.Time  `json:"detected_at"`
	ChangeType       ChangeType `json:"change_type"`
	AddedSentences   []string   `json:"added_sentences,omitempty"`
	RemovedSentences []string   `json:"removed_sentences,omitempty"`
	ModifiedCount    int        `json:"modified_count"`
	ChangedCount     int        `json:"changed_count"` // added + removed + modified
	Critical         bool       `json:"critical"`
	MatchedKeywords  []string   `json:"matched_keywords,omitempty"`
	NotifyEmail      string     `json:"notify_email,omitempty"`
}
