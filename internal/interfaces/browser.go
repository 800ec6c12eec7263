package interfaces

import (
	"context"

	"github.com/ternarybob/lustro/internal/models"
)

// BrowserHandler renders JavaScript-heavy pages in a pooled headless
// browser. Each navigation runs in an isolated tab context that is always
// released when the call returns.
type BrowserHandler interface {
	// NavigateToURL renders the page and returns the structured result.
	// Navigation failures are reported inside the result with
	// Success=false; the error return is reserved for pool-level faults.
	NavigateToURL(ctx context.Context, url string) (*models.RenderResult, error)
}
