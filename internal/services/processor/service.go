// -----------------------------------------------------------------------
// URL Processor - admission, fetch loop and the per-URL pipeline
// -----------------------------------------------------------------------

package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	kernelpkg "github.com/ternarybob/lustro/internal/kernel"
	"github.com/ternarybob/lustro/internal/models"
)

// documentExtensions routes these URL suffixes straight to the document
// processor without sniffing the response
var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".odt": true, ".ods": true, ".odp": true,
}

// Service implements the URLProcessor capability: it owns the frontier,
// the admission set and the worker pool, and drives every URL through
// the strictly serial post-fetch pipeline.
type Service struct {
	logger arbor.ILogger
	config *common.Config
	kernel interfaces.Kernel

	client     *http.Client
	admission  *admission
	frontier   *frontier
	politeness *politeness
	robots     *robotsCache
	retry      *retryPolicy

	tasks    sync.WaitGroup // queued plus in-process URLs
	inFlight atomic.Int32
	budget   atomic.Bool // page budget reached; frontier is closing
}

var _ interfaces.Component = (*Service)(nil)
var _ interfaces.URLProcessor = (*Service)(nil)

// NewService creates the URL processor
func NewService(logger arbor.ILogger, config *common.Config) *Service {
	client := newHTTPClient(config.RequestTimeout())
	return &Service{
		logger:     logger,
		config:     config,
		client:     client,
		admission:  newAdmission(config.Scrape.AllowedDomains, config.Scrape.ExcludeURLPatterns),
		frontier:   newFrontier(),
		politeness: newPoliteness(config.MinDelay(), config.MaxDelay()),
		robots:     newRobotsCache(client, config.Scrape.UserAgent, logger),
		retry:      newRetryPolicy(),
	}
}

// Name implements Component
func (s *Service) Name() string {
	return "url-processor"
}

// Initialize implements Component
func (s *Service) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	s.kernel = kernel
	return nil
}

// OnLifecycle implements Component
func (s *Service) OnLifecycle(ctx context.Context, event interfaces.LifecycleEvent) error {
	return nil
}

// Close implements Component
func (s *Service) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// InFlight returns the number of URLs currently being fetched
func (s *Service) InFlight() int {
	return int(s.inFlight.Load())
}

// Run drives a crawl from the seed list and blocks until the frontier
// drains or ctx is canceled
func (s *Service) Run(ctx context.Context, seeds []string) error {
	if len(seeds) > 0 {
		s.admission.setReferenceHost(seeds[0])
	}

	if prioritizer, ok := kernelpkg.Lookup[interfaces.Prioritizer](s.kernel); ok {
		seeds = prioritizer.PrioritizeURLs(seeds, len(seeds))
	}
	for _, seed := range seeds {
		s.enqueue(ctx, seed, 0)
	}

	// Close the frontier once every queued URL has been processed
	go func() {
		s.tasks.Wait()
		s.frontier.close()
	}()

	workers := s.config.Scrape.MaxConcurrentRequests
	var pool sync.WaitGroup
	for i := 0; i < workers; i++ {
		pool.Add(1)
		go func(worker int) {
			defer common.RecoverPanic(s.logger, fmt.Sprintf("crawl-worker-%d", worker))
			defer pool.Done()
			s.workerLoop(ctx, worker)
		}(i)
	}
	pool.Wait()

	if ctx.Err() != nil {
		// Release queued items the workers abandoned so the closer
		// goroutine can finish
		s.drainFrontier()
		return ctx.Err()
	}
	return nil
}

// ProcessURL admits a single URL at the given depth. Admission
// rejections are recorded, not returned.
func (s *Service) ProcessURL(ctx context.Context, url string, depth int) error {
	s.enqueue(ctx, url, depth)
	return nil
}

// ProcessURLBatch admits a batch of URLs at the same depth
func (s *Service) ProcessURLBatch(ctx context.Context, urls []string, depth int) error {
	for _, url := range urls {
		s.enqueue(ctx, url, depth)
	}
	return nil
}

// workerLoop drains the frontier until it closes or ctx ends
func (s *Service) workerLoop(ctx context.Context, worker int) {
	for {
		item, err := s.frontier.pop(ctx)
		if err != nil || item == nil {
			return
		}
		s.processItem(ctx, item)
		s.tasks.Done()
	}
}

// enqueue runs the admission rules and queues the URL. Returns true only
// for the caller that claimed the URL for this run.
func (s *Service) enqueue(ctx context.Context, rawURL string, depth int) bool {
	if ctx.Err() != nil || s.budget.Load() {
		return false
	}

	normalized, err := s.admission.check(rawURL)
	if err != nil {
		s.logger.Debug().Str("url", rawURL).Err(err).Msg("URL rejected at admission")
		return false
	}

	if depth > s.config.Scrape.MaxDepth {
		return false
	}

	// A URL visited in a prior run is only refetched when change
	// detection wants a new version of it
	if !s.config.Detection.EnableChangeDetection {
		if manager, ok := kernelpkg.Lookup[interfaces.StateManager](s.kernel); ok && manager.HasVisited(normalized) {
			return false
		}
	}

	if s.config.Scrape.RespectRobotsTxt && !s.robots.allowed(ctx, normalized) {
		s.logger.Debug().Str("url", normalized).Msg("URL disallowed by robots.txt")
		if tracker, ok := kernelpkg.Lookup[interfaces.MetricsTracker](s.kernel); ok {
			tracker.RecordFailedRequest(normalized, models.FailureKindRobots)
		}
		return false
	}

	if !s.admission.admit(normalized) {
		return false
	}

	score := 1.0
	if prioritizer, ok := kernelpkg.Lookup[interfaces.Prioritizer](s.kernel); ok {
		score = prioritizer.Score(normalized)
	}

	s.tasks.Add(1)
	if !s.frontier.push(normalized, depth, score) {
		s.tasks.Done()
		return false
	}
	return true
}

// processItem runs the full per-URL pipeline: politeness, fetch, then the
// strictly serial post-fetch steps. Errors are recorded against the run
// and never abort sibling URLs.
func (s *Service) processItem(ctx context.Context, item *frontierItem) {
	if s.kernel.PagesProcessed() >= s.config.Scrape.MaxPages {
		s.closeOnBudget()
		return
	}

	if err := s.politeness.wait(ctx, item.url); err != nil {
		return
	}
	if ctx.Err() != nil {
		return
	}

	tracker, hasMetrics := kernelpkg.Lookup[interfaces.MetricsTracker](s.kernel)
	if hasMetrics {
		tracker.StartURLRequest(item.url)
	}

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	result, err := s.fetchByPath(ctx, item)
	if err != nil {
		s.recordFailure(ctx, item, 0, err)
		return
	}
	if hasMetrics {
		tracker.CompleteURLRequest(item.url, result.statusCode, result.duration, int64(len(result.body)))
	}

	if result.statusCode < 200 || result.statusCode >= 300 {
		s.recordFailure(ctx, item, result.statusCode, nil)
		return
	}

	s.handleSuccess(ctx, item, result)
}

// fetchByPath picks the browser, document or plain HTTP path for a URL
func (s *Service) fetchByPath(ctx context.Context, item *frontierItem) (*fetchResult, error) {
	if s.useBrowser(item.url) {
		if browser, ok := kernelpkg.Lookup[interfaces.BrowserHandler](s.kernel); ok {
			return s.fetchViaBrowser(ctx, browser, item)
		}
		s.logger.Warn().Str("url", item.url).Msg("Browser path selected but no browser capability; falling back to HTTP")
	}

	var result *fetchResult
	status, err := s.retry.execute(ctx, s.logger, func() (int, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, item.url, nil)
		if reqErr != nil {
			return 0, reqErr
		}
		fetched, fetchErr := s.fetch(req)
		if fetchErr != nil {
			return 0, fetchErr
		}
		result = fetched
		return fetched.statusCode, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("fetch returned no result for status %d", status)
	}
	return result, nil
}

// fetchViaBrowser renders the page through the browser pool and adapts
// the render result into a fetch result
func (s *Service) fetchViaBrowser(ctx context.Context, browser interfaces.BrowserHandler, item *frontierItem) (*fetchResult, error) {
	rendered, err := browser.NavigateToURL(ctx, item.url)
	if err != nil {
		return nil, err
	}
	if !rendered.Success {
		return nil, fmt.Errorf("browser navigation failed: %s", rendered.Error)
	}

	status := rendered.Status
	if status == 0 {
		status = http.StatusOK
	}
	finalURL := rendered.FinalURL
	if finalURL == "" {
		finalURL = item.url
	}

	return &fetchResult{
		statusCode:  status,
		contentType: "text/html",
		body:        []byte(rendered.HTML),
		finalURL:    finalURL,
		duration:    rendered.RenderTime,
	}, nil
}

// useBrowser decides whether a URL takes the rendered path. Binary
// documents never do: their bytes must arrive unrendered.
func (s *Service) useBrowser(url string) bool {
	if isDocumentURL(url) {
		return false
	}
	if s.config.Scrape.ProcessJsHeavyPages {
		return true
	}
	host := common.URLHost(url)
	for _, site := range s.config.Scrape.JsHeavySites {
		if common.HostMatchesDomain(host, site) {
			return true
		}
	}
	return false
}

// handleSuccess runs the serial post-fetch pipeline: extract, persist,
// mark visited, track version, discover links
func (s *Service) handleSuccess(ctx context.Context, item *frontierItem, result *fetchResult) {
	if processor, ok := kernelpkg.Lookup[interfaces.DocumentProcessor](s.kernel); ok &&
		processor.CanProcess(item.url, result.contentType) {
		s.handleDocument(ctx, item, result, processor)
		return
	}

	html := string(result.body)
	content := s.extractContent(item, result, html)

	manager, hasState := kernelpkg.Lookup[interfaces.StateManager](s.kernel)
	if hasState {
		if err := manager.SaveContent(ctx, content); err != nil {
			s.logger.Warn().Err(err).Str("url", item.url).Msg("Content persistence failed")
			s.kernel.AddError(item.url, fmt.Sprintf("persist failed: %v", err))
		}
		if err := manager.MarkVisited(ctx, item.url, result.statusCode, result.duration); err != nil {
			s.logger.Warn().Err(err).Str("url", item.url).Msg("Visited mark failed")
			s.kernel.AddError(item.url, fmt.Sprintf("visited mark failed: %v", err))
		}
	}

	significant := s.trackVersion(ctx, content, html)

	links := s.discoverLinks(html, result.finalURL)

	if prioritizer, ok := kernelpkg.Lookup[interfaces.Prioritizer](s.kernel); ok {
		prioritizer.RecordOutcome(&models.PageOutcome{
			URL:         item.url,
			Domain:      common.URLHost(item.url),
			Depth:       item.depth,
			StatusCode:  result.statusCode,
			LinksFound:  len(links),
			Significant: significant,
		})
	}

	pages := s.kernel.AddPagesProcessed(1)
	if pages >= s.config.Scrape.MaxPages {
		s.closeOnBudget()
	}

	for _, link := range links {
		s.enqueue(ctx, link, item.depth+1)
	}

	s.logger.Info().
		Str("url", item.url).
		Int("depth", item.depth).
		Int("status", result.statusCode).
		Int("links", len(links)).
		Int("pages", pages).
		Msg("Page processed")
}

// handleDocument routes a binary document through the document processor
// and rejoins its text rendition to the standard pipeline
func (s *Service) handleDocument(ctx context.Context, item *frontierItem, result *fetchResult, processor interfaces.DocumentProcessor) {
	content, err := processor.ProcessDocument(ctx, item.url, result.body, result.contentType, item.depth)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", item.url).Msg("Document processing failed")
		s.kernel.AddError(item.url, fmt.Sprintf("document processing failed: %v", err))
		return
	}

	manager, hasState := kernelpkg.Lookup[interfaces.StateManager](s.kernel)
	if hasState {
		if err := manager.SaveContent(ctx, content); err != nil {
			s.kernel.AddError(item.url, fmt.Sprintf("persist failed: %v", err))
		}
		if err := manager.MarkVisited(ctx, item.url, result.statusCode, result.duration); err != nil {
			s.kernel.AddError(item.url, fmt.Sprintf("visited mark failed: %v", err))
		}
	}

	s.trackVersion(ctx, content, "")

	pages := s.kernel.AddPagesProcessed(1)
	if pages >= s.config.Scrape.MaxPages {
		s.closeOnBudget()
	}

	s.logger.Info().
		Str("url", item.url).
		Str("content_type", result.contentType).
		Msg("Document processed")
}

// extractContent builds the content item for a fetched page, using the
// extractor capability with a tag-strip fallback
func (s *Service) extractContent(item *frontierItem, result *fetchResult, html string) *models.ContentItem {
	content := &models.ContentItem{
		URL:           item.url,
		NormalizedURL: item.url,
		Body:          html,
		ContentType:   result.contentType,
		Hash:          common.HashBytes(result.body),
		Size:          int64(len(result.body)),
		Depth:         item.depth,
	}

	extractor, ok := kernelpkg.Lookup[interfaces.ContentExtractor](s.kernel)
	if !ok {
		content.TextContent = stripTags(html)
		content.Title = "Untitled"
		return content
	}

	text, err := extractor.ExtractText(html)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", item.url).Msg("Text extraction degraded to tag strip")
		text = stripTags(html)
	}
	content.TextContent = text
	content.Title = extractor.ExtractTitle(html)

	if markdown, err := extractor.DeriveMarkdown(html); err == nil {
		content.Markdown = markdown
	}
	return content
}

// trackVersion offers the content to the change detector and reports
// whether the visit produced a significant change
func (s *Service) trackVersion(ctx context.Context, content *models.ContentItem, html string) bool {
	if !s.config.Detection.EnableChangeDetection {
		return false
	}
	detector, ok := kernelpkg.Lookup[interfaces.ChangeDetector](s.kernel)
	if !ok {
		return false
	}

	var structured *models.StructuredContent
	if html != "" {
		if extractor, ok := kernelpkg.Lookup[interfaces.ContentExtractor](s.kernel); ok {
			structured, _ = extractor.ExtractStructured(html)
		}
	}

	_, report, err := detector.TrackPageVersion(ctx, content, structured)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", content.URL).Msg("Version tracking failed")
		return false
	}
	return report != nil
}

// discoverLinks extracts crawlable links from the page
func (s *Service) discoverLinks(html, baseURL string) []string {
	extractor, ok := kernelpkg.Lookup[interfaces.ContentExtractor](s.kernel)
	if !ok {
		return nil
	}
	links, err := extractor.ExtractLinks(html, baseURL)
	if err != nil {
		s.logger.Debug().Err(err).Str("base_url", baseURL).Msg("Link extraction failed")
		return nil
	}
	return links
}

// recordFailure categorizes a failed fetch, records it everywhere it
// needs to land, and marks the URL visited so it is not retried this run
func (s *Service) recordFailure(ctx context.Context, item *frontierItem, statusCode int, err error) {
	kind := failureKind(statusCode, err)

	if tracker, ok := kernelpkg.Lookup[interfaces.MetricsTracker](s.kernel); ok {
		tracker.RecordFailedRequest(item.url, kind)
	}

	message := fmt.Sprintf("fetch failed (status %d)", statusCode)
	if err != nil {
		message = fmt.Sprintf("fetch failed: %v", err)
	}
	s.kernel.AddError(item.url, message)

	if kind != models.FailureKindCanceled {
		if manager, ok := kernelpkg.Lookup[interfaces.StateManager](s.kernel); ok {
			if markErr := manager.MarkVisited(ctx, item.url, statusCode, 0); markErr != nil {
				s.logger.Warn().Err(markErr).Str("url", item.url).Msg("Visited mark failed")
			}
		}
	}

	if prioritizer, ok := kernelpkg.Lookup[interfaces.Prioritizer](s.kernel); ok {
		prioritizer.RecordOutcome(&models.PageOutcome{
			URL:        item.url,
			Domain:     common.URLHost(item.url),
			Depth:      item.depth,
			StatusCode: statusCode,
			Failed:     true,
		})
	}

	s.logger.Warn().
		Str("url", item.url).
		Int("status", statusCode).
		Str("kind", string(kind)).
		Err(err).
		Msg("URL failed")
}

// closeOnBudget closes the frontier the first time the page budget is hit
func (s *Service) closeOnBudget() {
	if s.budget.CompareAndSwap(false, true) {
		s.logger.Info().Int("max_pages", s.config.Scrape.MaxPages).Msg("Page budget reached; closing frontier")
		s.frontier.close()
	}
}

// drainFrontier releases queued items abandoned by canceled workers
func (s *Service) drainFrontier() {
	s.frontier.close()
	for {
		item, err := s.frontier.pop(context.Background())
		if err != nil || item == nil {
			return
		}
		s.tasks.Done()
	}
}

// failureKind categorizes a fetch failure for metrics
func failureKind(statusCode int, err error) models.FailureKind {
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		return models.FailureKindCanceled
	case err != nil && isTimeoutError(err):
		return models.FailureKindTimeout
	case err != nil:
		return models.FailureKindNetwork
	case statusCode >= 500:
		return models.FailureKindServerError
	default:
		return models.FailureKindClientError
	}
}

// isDocumentURL reports whether the URL path carries a document extension
func isDocumentURL(rawURL string) bool {
	ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	return documentExtensions[ext]
}

// htmlTagPattern powers the minimal fallback extraction when no content
// extractor capability is registered
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return strings.Join(strings.Fields(htmlTagPattern.ReplaceAllString(html, " ")), " ")
}
