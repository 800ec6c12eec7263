// -----------------------------------------------------------------------
// Component and Kernel contracts - typed capability registry
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/ternarybob/lustro/internal/models"
)

// LifecycleEvent is broadcast by the kernel to all components, serially,
// in registration order
type LifecycleEvent string

const (
	LifecycleInitialized       LifecycleEvent = "initialized"
	LifecycleScrapingStarted   LifecycleEvent = "scraping_started"
	LifecycleScrapingCompleted LifecycleEvent = "scraping_completed"
	LifecycleScrapingStopped   LifecycleEvent = "scraping_stopped"
)

// Component is the contract every engine plug-in implements. Components
// advertise capabilities by also implementing the capability interfaces in
// this package; the kernel resolves collaborators by interface, never by
// concrete type, so no component holds a reference to another.
type Component interface {
	// Name returns the unique component name used for registration
	Name() string

	// Initialize prepares the component. Called by the kernel in
	// registration order before the run starts; the first error aborts
	// startup.
	Initialize(ctx context.Context, kernel Kernel) error

	// OnLifecycle receives lifecycle broadcasts. Handlers run serially in
	// registration order; a panic here is recovered by the kernel and
	// never reaches sibling components.
	OnLifecycle(ctx context.Context, event LifecycleEvent) error

	// Close releases component resources. Called in reverse registration
	// order during shutdown.
	Close() error
}

// Kernel owns the component registry, the run's shared state and the
// lifecycle state machine. Capability lookup is performed with
// kernel.Lookup, which type-asserts registered components against a
// capability interface.
type Kernel interface {
	// Register adds a component. Duplicate names and registration after
	// Start are rejected.
	Register(component Component) error

	// Components returns the registered components in registration order
	Components() []Component

	// Start transitions to Running, initializes all components and drives
	// the crawl from the given seeds until the frontier drains or ctx ends
	Start(ctx context.Context, seeds []string) error

	// Stop requests cancellation and waits for in-flight work, bounded by
	// twice the configured request timeout. Safe to call more than once.
	Stop(ctx context.Context) error

	// Status returns the current lifecycle status
	Status() models.ScraperStatus

	// RunID returns the identity of the current run
	RunID() string

	// AddError records a scrape error into the bounded error ring
	AddError(url, message string)

	// Errors returns a snapshot copy of the error ring, oldest first
	Errors() []models.ScrapeError

	// AddPagesProcessed adds to the run's processed-page counter and
	// returns the new total
	AddPagesProcessed(n int) int

	// PagesProcessed returns the number of pages processed so far
	PagesProcessed() int

	// State returns a snapshot of the current scraper state
	State() *models.ScraperState

	// Events returns the engine's event stream
	Events() EventService
}
