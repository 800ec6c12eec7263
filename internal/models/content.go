package models

import (
	"time"
)

// Content type constants for fetched pages and documents
const (
	ContentTypeHTML  = "text/html"
	ContentTypePlain = "text/plain"
	ContentTypePDF   = "application/pdf"
)

// ContentItem represents one captured page or document body.
// TextContent is the canonical input for change detection; Markdown is a
// derived reading format kept alongside it.
type ContentItem struct {
	ID            string    `json:"id"` // page_{uuid}
	URL           string    `json:"url"`
	NormalizedURL string    `json:"normalized_url"`
	Title         string    `json:"title"`
	Body          string    `json:"body,omitempty"` // Raw HTML or extracted document text
	TextContent   string    `json:"text_content"`
	Markdown      string    `json:"markdown,omitempty"`
	ContentType   string    `json:"content_type"`
	Hash          string    `json:"hash"` // SHA-256 over TextContent, hex-encoded
	Size          int64     `json:"size"` // Raw body size in bytes
	Depth         int       `json:"depth"`
	CapturedAt    time.Time `json:"captured_at"`

	// FileArtifactMissing is set when the record persisted but one of its
	// file artifacts could not be written.
	FileArtifactMissing bool `json:"file_artifact_missing,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Heading is one document heading with its level (1-6)
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// StructuredContent is the parse-tree summary of a page used for
// structural change detection
type StructuredContent struct {
	Headings   []Heading `json:"headings,omitempty"`
	Paragraphs []string  `json:"paragraphs,omitempty"`
	ListItems  []string  `json:"list_items,omitempty"`
	TableCells []string  `json:"table_cells,omitempty"`
}

// Fingerprint reduces structured content to shape counts for cheap
// structural comparison between versions
func (s *StructuredContent) Fingerprint() StructureFingerprint {
	if s == nil {
		return StructureFingerprint{}
	}
	return StructureFingerprint{
		Headings:   len(s.Headings),
		Paragraphs: len(s.Paragraphs),
		ListItems:  len(s.ListItems),
		TableCells: len(s.TableCells),
	}
}

// StructureFingerprint captures the element shape of a page version
type StructureFingerprint struct {
	Headings   int `json:"headings"`
	Paragraphs int `json:"paragraphs"`
	ListItems  int `json:"list_items"`
	TableCells int `json:"table_cells"`
}

// IsZero reports whether the fingerprint carries no structure at all
func (f StructureFingerprint) IsZero() bool {
	return f.Headings == 0 && f.Paragraphs == 0 && f.ListItems == 0 && f.TableCells == 0
}

// RenderResult is the structured outcome of a browser-rendered navigation.
// Navigation failures populate Error and leave Success false rather than
// surfacing as Go errors, so callers always get a result to record.
type RenderResult struct {
	Success    bool          `json:"success"`
	URL        string        `json:"url"`
	FinalURL   string        `json:"final_url,omitempty"`
	Status     int           `json:"status,omitempty"`
	HTML       string        `json:"html,omitempty"`
	Text       string        `json:"text,omitempty"`
	Title      string        `json:"title,omitempty"`
	Links      []string      `json:"links,omitempty"`
	Error      string        `json:"error,omitempty"`
	RenderTime time.Duration `json:"render_time_ms"`
}
