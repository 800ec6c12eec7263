package interfaces

import (
	"github.com/ternarybob/lustro/internal/models"
)

// ContentExtractor turns raw HTML into text, structure and links.
// Extraction never panics on malformed markup; a parse failure yields
// empty results and an error.
type ContentExtractor interface {
	// ExtractText returns the visible text of a page with scripts, styles
	// and boilerplate chrome removed and whitespace collapsed
	ExtractText(html string) (string, error)

	// ExtractStructured returns the heading/paragraph/list/table summary
	// used for structural change detection
	ExtractStructured(html string) (*models.StructuredContent, error)

	// ExtractTitle resolves the page title through the usual fallbacks
	// (title tag, og:title, first h1, twitter:title)
	ExtractTitle(html string) string

	// ExtractLinks returns absolute crawlable links found in the page,
	// resolved against baseURL
	ExtractLinks(html, baseURL string) ([]string, error)

	// DeriveMarkdown converts the page's main content region to markdown
	DeriveMarkdown(html string) (string, error)
}
