// -----------------------------------------------------------------------
// Application wiring - builds the kernel, registers components and
// bridges engine events to the console
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/kernel"
	"github.com/ternarybob/lustro/internal/models"
	"github.com/ternarybob/lustro/internal/services/browser"
	"github.com/ternarybob/lustro/internal/services/detector"
	"github.com/ternarybob/lustro/internal/services/documents"
	"github.com/ternarybob/lustro/internal/services/events"
	"github.com/ternarybob/lustro/internal/services/extractor"
	"github.com/ternarybob/lustro/internal/services/metrics"
	"github.com/ternarybob/lustro/internal/services/prioritizer"
	"github.com/ternarybob/lustro/internal/services/processor"
	"github.com/ternarybob/lustro/internal/services/state"
)

// App owns the assembled engine: the kernel, its registered components
// and the event stream feeding the console
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	EventService interfaces.EventService
	Kernel       *kernel.Kernel
}

// New assembles the engine. Components register in dependency order:
// infrastructure first (state, metrics), then the pipeline stages, and
// the URL processor last so every capability it looks up is already
// registered when lifecycle events arrive.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		Logger:       logger,
		EventService: events.NewService(logger),
	}
	app.Kernel = kernel.New(cfg, app.EventService, logger)

	components := []interfaces.Component{
		metrics.NewService(logger),
		state.NewService(logger, cfg),
		extractor.NewService(logger),
		detector.NewService(logger, cfg),
		prioritizer.NewService(logger),
		browser.NewService(logger, cfg),
		documents.NewService(logger, cfg),
		processor.NewService(logger, cfg),
	}
	for _, component := range components {
		if err := app.Kernel.Register(component); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", component.Name(), err)
		}
	}

	app.subscribeConsoleEvents()

	logger.Info().
		Int("components", len(components)).
		Str("data_dir", cfg.Storage.DataDir).
		Bool("change_detection", cfg.Detection.EnableChangeDetection).
		Msg("Engine assembled")
	return app, nil
}

// Run drives a full crawl from the configured seeds and blocks until it
// finishes or ctx is canceled
func (a *App) Run(ctx context.Context) error {
	return a.Kernel.Start(ctx, a.Config.SeedURLs())
}

// Stop requests a graceful shutdown of an in-flight run
func (a *App) Stop(ctx context.Context) error {
	return a.Kernel.Stop(ctx)
}

// Close releases application resources not owned by the kernel
func (a *App) Close() error {
	if a.EventService != nil {
		return a.EventService.Close()
	}
	return nil
}

// subscribeConsoleEvents surfaces engine events in the run log so a CLI
// user sees significant changes and crawl progress as they happen
func (a *App) subscribeConsoleEvents() {
	a.EventService.Subscribe(interfaces.EventSignificantChange, func(ctx context.Context, event interfaces.Event) error {
		report, ok := event.Payload.(*models.SignificantChangeReport)
		if !ok {
			return nil
		}
		log := a.Logger.Info()
		if report.Critical {
			log = a.Logger.Warn().Strs("matched_keywords", report.MatchedKeywords)
		}
		log.Str("url", report.URL).
			Str("change_type", string(report.ChangeType)).
			Int("changed_count", report.ChangedCount).
			Msg("Significant content change detected")
		return nil
	})

	a.EventService.Subscribe(interfaces.EventCrawlProgress, func(ctx context.Context, event interfaces.Event) error {
		snapshot, ok := event.Payload.(models.RunMetrics)
		if !ok {
			return nil
		}
		a.Logger.Info().
			Int64("completed", snapshot.RequestsCompleted).
			Int64("failed", snapshot.RequestsFailed).
			Int64("bytes", snapshot.BytesFetched).
			Msg("Crawl progress")
		return nil
	})

	a.EventService.Subscribe(interfaces.EventDocumentSaved, func(ctx context.Context, event interfaces.Event) error {
		payload, ok := event.Payload.(map[string]interface{})
		if !ok {
			return nil
		}
		a.Logger.Info().
			Str("url", fmt.Sprintf("%v", payload["url"])).
			Str("extension", fmt.Sprintf("%v", payload["extension"])).
			Msg("Document archived")
		return nil
	})
}
