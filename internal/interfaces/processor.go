package interfaces

import "context"

// URLProcessor admits, fetches and pipelines URLs through the engine
type URLProcessor interface {
	// Run drives a crawl from the seed list and blocks until the frontier
	// drains, the page budget is reached, or ctx is canceled
	Run(ctx context.Context, seeds []string) error

	// ProcessURL admits a single URL at the given depth. Rejections by the
	// admission rules are not errors; they are recorded and skipped.
	ProcessURL(ctx context.Context, url string, depth int) error

	// ProcessURLBatch admits a batch of URLs at the same depth
	ProcessURLBatch(ctx context.Context, urls []string, depth int) error

	// InFlight returns the number of URLs currently being fetched
	InFlight() int
}
