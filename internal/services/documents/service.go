// -----------------------------------------------------------------------
// Document Processor - routes PDF and Office documents out of the HTML
// pipeline and rejoins their text rendition to the standard flow
// -----------------------------------------------------------------------

package documents

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/interfaces"
	kernelpkg "github.com/ternarybob/lustro/internal/kernel"
	"github.com/ternarybob/lustro/internal/models"
)

// contentTypeExtensions maps MIME types to the extension used for
// extractor routing and artifact naming
var contentTypeExtensions = map[string]string{
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
	"application/vnd.ms-powerpoint":                                     "ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"application/vnd.oasis.opendocument.text":         "odt",
	"application/vnd.oasis.opendocument.spreadsheet":  "ods",
	"application/vnd.oasis.opendocument.presentation": "odp",
}

// Service implements the DocumentProcessor capability. Extraction
// backends register by extension; which families are active is decided
// by configuration at construction time.
type Service struct {
	logger     arbor.ILogger
	config     *common.Config
	kernel     interfaces.Kernel
	extractors map[string]interfaces.DocumentExtractor
}

var _ interfaces.Component = (*Service)(nil)
var _ interfaces.DocumentProcessor = (*Service)(nil)

// NewService creates the document processor with the extractors the
// configuration enables
func NewService(logger arbor.ILogger, config *common.Config) *Service {
	s := &Service{
		logger:     logger,
		config:     config,
		extractors: make(map[string]interfaces.DocumentExtractor),
	}

	if config.Documents.ProcessPdfDocuments {
		s.registerExtractor(newPDFExtractor(logger))
	}
	if config.Documents.ProcessOfficeDocuments {
		s.registerExtractor(newOfficeExtractor(logger))
	}
	return s
}

func (s *Service) registerExtractor(extractor interfaces.DocumentExtractor) {
	for _, ext := range extractor.Extensions() {
		s.extractors[ext] = extractor
	}
}

// Name implements Component
func (s *Service) Name() string {
	return "document-processor"
}

// Initialize implements Component
func (s *Service) Initialize(ctx context.Context, kernel interfaces.Kernel) error {
	s.kernel = kernel
	s.logger.Debug().
		Int("extractors", len(s.extractors)).
		Bool("pdf", s.config.Documents.ProcessPdfDocuments).
		Bool("office", s.config.Documents.ProcessOfficeDocuments).
		Msg("Document processor initialized")
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

// CanProcess reports whether the URL or content type identifies a
// document family this processor is configured to handle
func (s *Service) CanProcess(rawURL, contentType string) bool {
	_, ok := s.extractors[documentExtension(rawURL, contentType)]
	return ok
}

// ProcessDocument extracts text and metadata from a fetched document,
// persists the raw artifact and its companions, and returns the
// text/plain content item that rejoins the standard pipeline
func (s *Service) ProcessDocument(ctx context.Context, rawURL string, body []byte, contentType string, depth int) (*models.ContentItem, error) {
	ext := documentExtension(rawURL, contentType)
	extractor, ok := s.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for %q (content type %q)", ext, contentType)
	}

	extracted, err := extractor.Extract(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("extraction failed for %s: %w", rawURL, err)
	}

	metadata := map[string]interface{}{
		"source_url":   rawURL,
		"content_type": contentType,
		"size_bytes":   len(body),
	}
	if extracted.PageCount > 0 {
		metadata["page_count"] = extracted.PageCount
	}
	for k, v := range extracted.Metadata {
		metadata[k] = v
	}

	item := &models.ContentItem{
		URL:           rawURL,
		NormalizedURL: rawURL,
		Title:         documentTitle(rawURL),
		ContentType:   "text/plain",
		TextContent:   extracted.Text,
		Hash:          common.HashBytes(body),
		Size:          int64(len(body)),
		Depth:         depth,
	}

	if manager, ok := kernelpkg.Lookup[interfaces.StateManager](s.kernel); ok {
		if err := manager.SaveDocumentArtifacts(ctx, rawURL, body, ext, extracted.Text, metadata); err != nil {
			s.logger.Warn().Err(err).Str("url", rawURL).Msg("Document artifact write failed")
			item.FileArtifactMissing = true
		}
	}

	s.kernel.Events().Publish(ctx, interfaces.Event{
		Type: interfaces.EventDocumentSaved,
		Payload: map[string]interface{}{
			"url":       rawURL,
			"extension": ext,
			"pages":     extracted.PageCount,
		},
	})

	s.logger.Debug().
		Str("url", rawURL).
		Str("extension", ext).
		Int("pages", extracted.PageCount).
		Int("text_len", len(extracted.Text)).
		Msg("Document processed")
	return item, nil
}

// documentExtension resolves the routing extension from the URL path,
// falling back to the content type
func documentExtension(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), "."); ext != "" {
			return ext
		}
	}
	return contentTypeExtensions[strings.ToLower(strings.TrimSpace(contentType))]
}

// documentTitle derives a display title from the URL's file name
func documentTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return rawURL
	}
	return name
}
