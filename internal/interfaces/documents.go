// -----------------------------------------------------------------------
// Document processing contracts - binary document handling and the narrow
// extraction interface that keeps extraction backends swappable
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/ternarybob/lustro/internal/models"
)

// ExtractedDocument is the result of text extraction from a binary document
type ExtractedDocument struct {
	Text      string                 `json:"text"`
	PageCount int                    `json:"page_count,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// DocumentExtractor extracts text and metadata from one family of binary
// document formats. Implementations are registered with the document
// processor by extension; the engine core never depends on a specific
// extraction toolchain beyond this contract.
type DocumentExtractor interface {
	// Extensions returns the lowercase file extensions this extractor
	// handles, without the leading dot
	Extensions() []string

	// Extract pulls text and metadata out of the raw document bytes
	Extract(ctx context.Context, data []byte) (*ExtractedDocument, error)
}

// DocumentProcessor routes document URLs (PDF, Office) out of the HTML
// pipeline: it persists the raw artifact plus extracted text and metadata,
// and hands back a text/plain content item that rejoins the standard
// persist/visit/version flow.
type DocumentProcessor interface {
	// CanProcess reports whether the URL or content type identifies a
	// document this processor is configured to handle
	CanProcess(url, contentType string) bool

	// ProcessDocument processes a fetched document body and returns the
	// text/plain content item derived from it
	ProcessDocument(ctx context.Context, url string, body []byte, contentType string, depth int) (*models.ContentItem, error)
}
