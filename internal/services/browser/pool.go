package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
)

// startupTestTimeout bounds the about:blank smoke test per instance
const startupTestTimeout = 30 * time.Second

// pool holds a fixed set of pre-warmed browser contexts handed out
// round-robin. Each navigation gets its own tab context on top of a
// pooled browser, so pooled instances are never canceled mid-run.
type pool struct {
	logger arbor.ILogger

	mu               sync.Mutex
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	next             int
	initialized      bool
}

func newPool(logger arbor.ILogger) *pool {
	return &pool{logger: logger}
}

// init launches the configured number of browser instances. Partial
// success is tolerated; zero instances is a startup error.
func (p *pool) init(config *common.BrowserConfig, userAgent string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("browser pool already initialized")
	}
	if config.PoolSize <= 0 {
		return fmt.Errorf("browser pool size must be positive, got %d", config.PoolSize)
	}

	var lastErr error
	for i := 0; i < config.PoolSize; i++ {
		if err := p.launchInstance(config, userAgent); err != nil {
			lastErr = err
			p.logger.Warn().Err(err).Int("instance", i).Msg("Browser instance failed to launch")
		}
	}

	if len(p.browsers) == 0 {
		p.teardown()
		return fmt.Errorf("no browser instances could be launched: %w", lastErr)
	}
	if len(p.browsers) < config.PoolSize {
		p.logger.Warn().
			Int("requested", config.PoolSize).
			Int("launched", len(p.browsers)).
			Msg("Browser pool running below requested size")
	}

	p.initialized = true
	p.logger.Info().
		Int("pool_size", len(p.browsers)).
		Bool("headless", config.Headless).
		Msg("Browser pool ready")
	return nil
}

func (p *pool) launchInstance(config *common.BrowserConfig, userAgent string) error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, startupTestTimeout)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)
	return nil
}

// acquire returns the next pooled browser context, round-robin
func (p *pool) acquire() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || len(p.browsers) == 0 {
		return nil, fmt.Errorf("browser pool not initialized")
	}

	browserCtx := p.browsers[p.next%len(p.browsers)]
	p.next = (p.next + 1) % len(p.browsers)
	return browserCtx, nil
}

// shutdown cancels every pooled instance
func (p *pool) shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	count := len(p.browsers)
	p.teardown()
	p.initialized = false

	p.logger.Info().Int("instances", count).Msg("Browser pool shut down")
}

// teardown releases all contexts; callers hold p.mu
func (p *pool) teardown() {
	for _, cancel := range p.browserCancels {
		cancel()
	}
	for _, cancel := range p.allocatorCancels {
		cancel()
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.next = 0
}
