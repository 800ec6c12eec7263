// -----------------------------------------------------------------------
// Content Extractor - HTML to text, structure, title and link extraction
// -----------------------------------------------------------------------

package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/interfaces"
	"github.com/ternarybob/lustro/internal/models"
)

// boilerplateSelector names the elements stripped before text extraction
const boilerplateSelector = "script, style, noscript, nav, footer, aside"

// contentSelectors is the fallback chain for locating the main content
// region when deriving markdown
var contentSelectors = []string{"main", "article", "#content", "#main", ".content", "body"}

// skippedSchemes are link prefixes that never yield crawlable URLs
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// Service implements the ContentExtractor capability on goquery
type Service struct {
	logger    arbor.ILogger
	converter *md.Converter
}

var _ interfaces.Component = (*Service)(nil)
var _ interfaces.ContentExtractor = (*Service)(nil)

// NewService creates the content extractor
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger:    logger,
		converter: md.NewConverter("", true, nil),
	}
}

// Name implements Component
func (s *Service) Name() string {
	return "content-extractor"
}

// Initialize implements Component
func (s *Service) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	return nil
}

// OnLifecycle implements Component
func (s *Service) OnLifecycle(ctx context.Context, event interfaces.LifecycleEvent) error {
	return nil
}

// Close implements Component
func (s *Service) Close() error {
	return nil
}

// ExtractText returns the visible text of a page with boilerplate removed
// and whitespace collapsed
func (s *Service) ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(boilerplateSelector).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	return CollapseWhitespace(body.Text()), nil
}

// ExtractStructured returns the heading/paragraph/list/table summary used
// for structural change detection. Parser failure yields an empty
// structure and an error, never a panic.
func (s *Service) ExtractStructured(html string) (*models.StructuredContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &models.StructuredContent{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	structured := &models.StructuredContent{}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(i int, sel *goquery.Selection) {
		text := CollapseWhitespace(sel.Text())
		if text == "" {
			return
		}
		level := int(goquery.NodeName(sel)[1] - '0')
		structured.Headings = append(structured.Headings, models.Heading{Level: level, Text: text})
	})

	doc.Find("p").Each(func(i int, sel *goquery.Selection) {
		if text := CollapseWhitespace(sel.Text()); text != "" {
			structured.Paragraphs = append(structured.Paragraphs, text)
		}
	})

	doc.Find("li").Each(func(i int, sel *goquery.Selection) {
		if text := CollapseWhitespace(sel.Text()); text != "" {
			structured.ListItems = append(structured.ListItems, text)
		}
	})

	doc.Find("td, th").Each(func(i int, sel *goquery.Selection) {
		if text := CollapseWhitespace(sel.Text()); text != "" {
			structured.TableCells = append(structured.TableCells, text)
		}
	})

	return structured, nil
}

// ExtractTitle resolves the page title: title tag, og:title, first h1,
// twitter:title, then "Untitled"
func (s *Service) ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "Untitled"
	}

	if title := CollapseWhitespace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		if title := CollapseWhitespace(ogTitle); title != "" {
			return title
		}
	}
	if h1 := CollapseWhitespace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if twitterTitle, exists := doc.Find("meta[name='twitter:title']").Attr("content"); exists {
		if title := CollapseWhitespace(twitterTitle); title != "" {
			return title
		}
	}
	return "Untitled"
}

// ExtractLinks returns deduplicated absolute links from the page,
// resolved against baseURL. Non-navigational schemes and bare fragments
// are skipped.
func (s *Service) ExtractLinks(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("base_url", baseURL).Msg("Unparsable base URL; relative links dropped")
		base = nil
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		lower := strings.ToLower(href)
		for _, scheme := range skippedSchemes {
			if strings.HasPrefix(lower, scheme) {
				return
			}
		}

		if base != nil {
			resolved, err := base.Parse(href)
			if err != nil {
				return
			}
			href = resolved.String()
		}

		if !seen[href] {
			seen[href] = true
			links = append(links, href)
		}
	})

	return links, nil
}

// DeriveMarkdown converts the page's main content region to markdown
func (s *Service) DeriveMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find(boilerplateSelector).Remove()

	var content *goquery.Selection
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			content = sel
			break
		}
	}
	if content == nil {
		content = doc.Selection
	}

	inner, err := content.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize content region: %w", err)
	}

	markdown, err := s.converter.ConvertString(inner)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// CollapseWhitespace trims a string and folds every whitespace run into a
// single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
