package interfaces

import (
	"context"

	"github.com/ternarybob/lustro/internal/models"
)

// ChangeDetector tracks page versions between visits and classifies what
// changed. Version history is loaded at initialize and persisted on the
// terminal lifecycle events.
type ChangeDetector interface {
	// RegisterScraper configures the detection domain for a run: how many
	// versions to retain per URL, whether full version tracking is on, and
	// the notification metadata carried on reports
	RegisterScraper(name string, maxVersions int, trackVersions bool, notify bool, email string)

	// TrackPageVersion hashes the item's text, compares it against the
	// last tracked version of the URL and appends a new version. Returns
	// the classified change and, when the change crosses the significance
	// threshold, a report (already published to the event stream).
	TrackPageVersion(ctx context.Context, item *models.ContentItem, structured *models.StructuredContent) (models.ChangeType, *models.SignificantChangeReport, error)

	// History returns a copy of the tracked versions for a URL, oldest first
	History(url string) []models.PageVersion
}
