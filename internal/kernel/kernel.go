// -----------------------------------------------------------------------
// Kernel - component registry, lifecycle state machine and run driver
// -----------------------------------------------------------------------

package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
)

// errorRingCap bounds the kernel's error ring; older entries are evicted
const errorRingCap = 100

// Kernel owns the component registry, the run's shared state and the
// cancellation signal. Components never talk to each other directly; they
// resolve collaborators through Lookup and receive lifecycle broadcasts
// here in registration order.
type Kernel struct {
	config *common.Config
	logger arbor.ILogger
	events interfaces.EventService

	mu         sync.RWMutex
	components []interfaces.Component
	names      map[string]bool
	started    bool
	status     models.ScraperStatus
	runID      string
	seeds      []string
	startedAt  time.Time
	endedAt    *time.Time
	lastError  string
	pages      int
	errors     []models.ScrapeError

	runCancel context.CancelFunc
	inFlight  sync.WaitGroup
	terminal  sync.Once
}

var _ interfaces.Kernel = (*Kernel)(nil)

// New creates a kernel around a validated config and an event stream
func New(config *common.Config, events interfaces.EventService, logger arbor.ILogger) *Kernel {
	return &Kernel{
		config: config,
		logger: logger,
		events: events,
		names:  make(map[string]bool),
		status: models.ScraperStatusInitializing,
	}
}

// Config returns the run configuration
func (k *Kernel) Config() *common.Config {
	return k.config
}

// Events returns the engine's event stream
func (k *Kernel) Events() interfaces.EventService {
	return k.events
}

// Register adds a component to the registry. Registration order is
// broadcast order; duplicates and late registration are rejected.
func (k *Kernel) Register(component interfaces.Component) error {
	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.started {
		return fmt.Errorf("cannot register component %q after start", component.Name())
	}
	if k.names[component.Name()] {
		return fmt.Errorf("component %q already registered", component.Name())
	}

	k.names[component.Name()] = true
	k.components = append(k.components, component)

	k.logger.Debug().Str("component", component.Name()).Msg("Component registered")
	return nil
}

// Components returns the registered components in registration order
func (k *Kernel) Components() []interfaces.Component {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]interfaces.Component, len(k.components))
	copy(out, k.components)
	return out
}

// Lookup resolves the first registered component that advertises
// capability C. Absence is an explicit (zero, false), never a panic.
func Lookup[C any](k interfaces.Kernel) (C, bool) {
	for _, component := range k.Components() {
		if capability, ok := component.(C); ok {
			return capability, true
		}
	}
	var zero C
	return zero, false
}

// Start transitions the run to Running, initializes every component in
// registration order and drives the crawl from the seed list. It blocks
// until the frontier drains, ctx ends, or Stop is called.
func (k *Kernel) Start(ctx context.Context, seeds []string) error {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return fmt.Errorf("kernel already started")
	}
	k.started = true
	k.status = models.ScraperStatusInitializing
	k.runID = common.NewRunID()
	k.seeds = append([]string(nil), seeds...)
	k.startedAt = time.Now().UTC()

	runCtx, cancel := context.WithCancel(ctx)
	k.runCancel = cancel
	k.mu.Unlock()

	k.logger.Info().
		Str("run_id", k.runID).
		Int("seeds", len(seeds)).
		Msg("Starting scrape run")

	if err := k.initializeComponents(runCtx); err != nil {
		k.failRun(runCtx, err)
		return err
	}

	processor, ok := Lookup[interfaces.URLProcessor](k)
	if !ok {
		err := fmt.Errorf("no URL processor capability registered")
		k.failRun(runCtx, err)
		return err
	}

	k.setStatus(models.ScraperStatusRunning)
	k.broadcast(runCtx, interfaces.LifecycleScrapingStarted)
	k.persistState(runCtx)

	k.inFlight.Add(1)
	err := func() error {
		defer k.inFlight.Done()
		return processor.Run(runCtx, seeds)
	}()

	if err != nil && runCtx.Err() == nil {
		k.failRun(runCtx, err)
		return err
	}

	if runCtx.Err() != nil {
		// Stop() owns the terminal transition on cancellation
		k.finishRun(context.Background(), models.ScraperStatusStopped, interfaces.LifecycleScrapingStopped)
		return nil
	}

	k.finishRun(runCtx, models.ScraperStatusCompleted, interfaces.LifecycleScrapingCompleted)
	return nil
}

// Stop requests cancellation and waits for in-flight work, bounded by
// twice the configured request timeout. Safe to call more than once.
func (k *Kernel) Stop(ctx context.Context) error {
	k.mu.Lock()
	cancel := k.runCancel
	k.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("kernel not started")
	}

	k.logger.Info().Str("run_id", k.RunID()).Msg("Stop requested")
	cancel()

	drained := make(chan struct{})
	go func() {
		k.inFlight.Wait()
		close(drained)
	}()

	drainCeiling := 2 * k.config.RequestTimeout()
	select {
	case <-drained:
	case <-time.After(drainCeiling):
		k.logger.Warn().
			Dur("ceiling", drainCeiling).
			Msg("Drain ceiling reached; abandoning in-flight work")
	case <-ctx.Done():
		return ctx.Err()
	}

	k.finishRun(context.Background(), models.ScraperStatusStopped, interfaces.LifecycleScrapingStopped)
	return nil
}

func (k *Kernel) setStatus(status models.ScraperStatus) {
	k.mu.Lock()
	k.status = status
	k.mu.Unlock()
}

// Status returns the current lifecycle status
func (k *Kernel) Status() models.ScraperStatus {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.status
}

// RunID returns the identity of the current run
func (k *Kernel) RunID() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.runID
}

// AddError records a scrape error into the bounded error ring
func (k *Kernel) AddError(url, message string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.errors = append(k.errors, models.ScrapeError{
		URL:        url,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	})
	if len(k.errors) > errorRingCap {
		k.errors = k.errors[len(k.errors)-errorRingCap:]
	}
}

// Errors returns a snapshot copy of the error ring, oldest first
func (k *Kernel) Errors() []models.ScrapeError {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]models.ScrapeError, len(k.errors))
	copy(out, k.errors)
	return out
}

// AddPagesProcessed adds to the run's processed-page counter and returns
// the new total
func (k *Kernel) AddPagesProcessed(n int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pages += n
	return k.pages
}

// PagesProcessed returns the number of pages processed so far
func (k *Kernel) PagesProcessed() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.pages
}

// State returns a snapshot of the current scraper state. Metrics are
// folded in when a metrics capability is registered.
func (k *Kernel) State() *models.ScraperState {
	k.mu.RLock()
	state := &models.ScraperState{
		RunID:          k.runID,
		Status:         k.status,
		Seeds:          append([]string(nil), k.seeds...),
		StartedAt:      k.startedAt,
		CompletedAt:    k.endedAt,
		PagesProcessed: k.pages,
		LastError:      k.lastError,
	}
	k.mu.RUnlock()

	if tracker, ok := Lookup[interfaces.MetricsTracker](k); ok {
		state.Metrics = tracker.Snapshot()
	}
	return state
}

// initializeComponents runs Initialize on every component in registration
// order. The first failure aborts startup.
func (k *Kernel) initializeComponents(ctx context.Context) error {
	for _, component := range k.Components() {
		if err := k.initializeComponent(ctx, component); err != nil {
			return fmt.Errorf("component %q failed to initialize: %w", component.Name(), err)
		}
		k.logger.Debug().Str("component", component.Name()).Msg("Component initialized")
	}
	k.broadcast(ctx, interfaces.LifecycleInitialized)
	return nil
}

func (k *Kernel) initializeComponent(ctx context.Context, component interfaces.Component) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during initialize: %v", r)
		}
	}()
	return component.Initialize(ctx, k)
}

// broadcast delivers a lifecycle event to every component serially in
// registration order. A panicking or failing handler is recorded and
// never reaches its siblings.
func (k *Kernel) broadcast(ctx context.Context, event interfaces.LifecycleEvent) {
	for _, component := range k.Components() {
		k.deliver(ctx, component, event)
	}
}

func (k *Kernel) deliver(ctx context.Context, component interfaces.Component, event interfaces.LifecycleEvent) {
	defer func() {
		if r := recover(); r != nil {
			k.logger.Error().
				Str("component", component.Name()).
				Str("event", string(event)).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Lifecycle handler panicked")
			k.AddError("", fmt.Sprintf("lifecycle %s panicked in %s: %v", event, component.Name(), r))
		}
	}()

	if err := component.OnLifecycle(ctx, event); err != nil {
		k.logger.Warn().
			Err(err).
			Str("component", component.Name()).
			Str("event", string(event)).
			Msg("Lifecycle handler failed")
		k.AddError("", fmt.Sprintf("lifecycle %s failed in %s: %v", event, component.Name(), err))
	}
}

// finishRun performs the terminal transition exactly once per run
func (k *Kernel) finishRun(ctx context.Context, status models.ScraperStatus, event interfaces.LifecycleEvent) {
	k.terminal.Do(func() {
		now := time.Now().UTC()
		k.mu.Lock()
		k.status = status
		k.endedAt = &now
		k.mu.Unlock()

		k.broadcast(ctx, event)
		k.persistState(ctx)
		k.closeComponents()

		k.logger.Info().
			Str("run_id", k.RunID()).
			Str("status", string(status)).
			Int("pages", k.PagesProcessed()).
			Msg("Scrape run finished")
	})
}

func (k *Kernel) failRun(ctx context.Context, cause error) {
	k.mu.Lock()
	k.lastError = cause.Error()
	k.mu.Unlock()

	k.logger.Error().Err(cause).Str("run_id", k.RunID()).Msg("Scrape run failed")
	k.AddError("", cause.Error())
	k.finishRun(ctx, models.ScraperStatusFailed, interfaces.LifecycleScrapingStopped)
}

// persistState writes the current state through the state manager
// capability when one is registered
func (k *Kernel) persistState(ctx context.Context) {
	manager, ok := Lookup[interfaces.StateManager](k)
	if !ok {
		return
	}
	if err := manager.SaveState(ctx, k.State()); err != nil {
		k.logger.Warn().Err(err).Msg("Failed to persist scraper state")
	}
}

// closeComponents releases components in reverse registration order
func (k *Kernel) closeComponents() {
	components := k.Components()
	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].Close(); err != nil {
			k.logger.Warn().
				Err(err).
				Str("component", components[i].Name()).
				Msg("Component close failed")
		}
	}
}
