// -----------------------------------------------------------------------
// Browser Handler - headless rendering for JavaScript-heavy pages
// -----------------------------------------------------------------------

package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
)

// linkCollectionScript gathers absolute hrefs after scripts have run, so
// links injected by JavaScript are visible to the crawl
const linkCollectionScript = `Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`

// Service implements the BrowserHandler capability on top of a pooled
// set of headless Chrome instances. The pool launches lazily on the
// first navigation, so runs that never touch a JavaScript-heavy page
// never pay the browser startup cost.
type Service struct {
	logger arbor.ILogger
	config *common.Config
	pool   *pool

	launch    sync.Once
	launchErr error
}

var _ interfaces.Component = (*Service)(nil)
var _ interfaces.BrowserHandler = (*Service)(nil)

// NewService creates the browser handler
func NewService(logger arbor.ILogger, config *common.Config) *Service {
	return &Service{
		logger: logger,
		config: config,
		pool:   newPool(logger),
	}
}

// Name implements Component
func (s *Service) Name() string {
	return "browser-handler"
}

// Initialize implements Component. The pool itself launches on first use.
func (s *Service) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	return nil
}

// OnLifecycle implements Component
func (s *Service) OnLifecycle(ctx context.Context, event interfaces.LifecycleEvent) error {
	return nil
}

// Close implements Component
func (s *Service) Close() error {
	s.pool.shutdown()
	return nil
}

// NavigateToURL renders a page in a pooled browser tab and returns the
// post-JavaScript DOM. Navigation failures populate the result's Error
// field; a Go error means the pool itself is unusable.
func (s *Service) NavigateToURL(ctx context.Context, url string) (*models.RenderResult, error) {
	s.launch.Do(func() {
		s.launchErr = s.pool.init(&s.config.Browser, s.config.Scrape.UserAgent)
	})
	if s.launchErr != nil {
		return nil, fmt.Errorf("browser pool unavailable: %w", s.launchErr)
	}

	browserCtx, err := s.pool.acquire()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &models.RenderResult{URL: url}

	// A fresh tab per navigation; the pooled browser survives it
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	timeout := s.config.RequestTimeout()
	runCtx, cancelRun := context.WithTimeout(tabCtx, timeout)
	defer cancelRun()

	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	// Capture the main document's HTTP status from the CDP event stream
	var status atomic.Int64
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				status.CompareAndSwap(0, resp.Response.Status)
			}
		}
	})

	var html, title, finalURL string
	err = chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(s.config.Browser.JavaScriptWaitTime),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(linkCollectionScript, &result.Links),
	)

	result.RenderTime = time.Since(start)
	result.Status = int(status.Load())

	if err != nil {
		result.Error = err.Error()
		s.logger.Warn().
			Err(err).
			Str("url", url).
			Dur("render_time", result.RenderTime).
			Msg("Browser navigation failed")
		return result, nil
	}

	result.Success = true
	result.FinalURL = finalURL
	result.Title = title
	result.HTML = html

	s.logger.Debug().
		Str("url", url).
		Int("status", result.Status).
		Int("links", len(result.Links)).
		Dur("render_time", result.RenderTime).
		Msg("Page rendered")
	return result, nil
}
