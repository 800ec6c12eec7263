package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/interfaces"
)

// pdfExtractor pulls text and metadata out of PDF documents using
// pdfcpu. pdfcpu works on files, so each extraction round-trips through
// a private temp directory.
type pdfExtractor struct {
	logger arbor.ILogger
}

var _ interfaces.DocumentExtractor = (*pdfExtractor)(nil)

func newPDFExtractor(logger arbor.ILogger) *pdfExtractor {
	return &pdfExtractor{logger: logger}
}

// Extensions implements DocumentExtractor
func (e *pdfExtractor) Extensions() []string {
	return []string{"pdf"}
}

// Extract implements DocumentExtractor
func (e *pdfExtractor) Extract(ctx context.Context, data []byte) (*interfaces.ExtractedDocument, error) {
	workDir, err := os.MkdirTemp("", "lustro-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	pdfFile := filepath.Join(workDir, "document.pdf")
	if err := os.WriteFile(pdfFile, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(pdfFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	result := &interfaces.ExtractedDocument{
		PageCount: pageCount,
		Metadata: map[string]interface{}{
			"encrypted": pdfCtx.Encrypt != nil,
		},
	}

	outDir := filepath.Join(workDir, "content")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(pdfFile, outDir, nil, conf); err != nil {
		// Scanned or image-only PDFs have no extractable content stream;
		// keep the page count and return empty text
		e.logger.Warn().Err(err).Int("pages", pageCount).Msg("PDF content extraction failed")
		return result, nil
	}

	result.Text = e.collectPageText(outDir, pageCount)
	return result, nil
}

// collectPageText reads the per-page content files pdfcpu wrote and
// joins them in page order with page markers
func (e *pdfExtractor) collectPageText(outDir string, pageCount int) string {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return ""
	}

	pageTexts := make(map[int]string, pageCount)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}

		var pageNum int
		name := entry.Name()
		if _, err := fmt.Sscanf(name, "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(name, "page_%d", &pageNum); err != nil {
				continue
			}
		}
		pageTexts[pageNum] = string(content)
	}

	pages := make([]int, 0, len(pageTexts))
	for page := range pageTexts {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	var builder strings.Builder
	for _, page := range pages {
		if builder.Len() > 0 {
			builder.WriteString(fmt.Sprintf("\n\n--- Page %d ---\n\n", page))
		}
		builder.WriteString(pageTexts[page])
	}
	return builder.String()
}
