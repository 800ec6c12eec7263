package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/interfaces"
)

// officeExtractor handles OOXML and OpenDocument files. Modern Office
// formats are zip containers with XML parts; text lives in a
// format-specific document part that this extractor walks directly.
// Legacy binary formats (doc, xls, ppt) yield no text, only metadata.
type officeExtractor struct {
	logger arbor.ILogger
}

var _ interfaces.DocumentExtractor = (*officeExtractor)(nil)

// documentParts maps extensions to the zip entry prefix carrying text
var documentParts = map[string]string{
	"docx": "word/document.xml",
	"xlsx": "xl/sharedStrings.xml",
	"pptx": "ppt/slides/slide",
	"odt":  "content.xml",
	"ods":  "content.xml",
	"odp":  "content.xml",
}

func newOfficeExtractor(logger arbor.ILogger) *officeExtractor {
	return &officeExtractor{logger: logger}
}

// Extensions implements DocumentExtractor
func (e *officeExtractor) Extensions() []string {
	return []string{"doc", "docx", "xls", "xlsx", "ppt", "pptx", "odt", "ods", "odp"}
}

// Extract implements DocumentExtractor
func (e *officeExtractor) Extract(ctx context.Context, data []byte) (*interfaces.ExtractedDocument, error) {
	result := &interfaces.ExtractedDocument{
		Metadata: map[string]interface{}{},
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// Legacy binary format; record that and move on
		result.Metadata["format"] = "legacy"
		e.logger.Debug().Err(err).Msg("Office document is not a zip container; no text extracted")
		return result, nil
	}
	result.Metadata["format"] = "xml"

	var texts []string
	for _, file := range reader.File {
		if !isDocumentPart(file.Name) {
			continue
		}
		text, err := e.extractPartText(file)
		if err != nil {
			e.logger.Debug().Err(err).Str("part", file.Name).Msg("Office part extraction failed")
			continue
		}
		if text != "" {
			texts = append(texts, text)
		}
	}

	result.Text = strings.Join(texts, "\n\n")
	return result, nil
}

func isDocumentPart(name string) bool {
	for _, prefix := range documentParts {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// extractPartText walks the XML token stream of one document part and
// collects character data, inserting breaks at paragraph-level elements
func (e *officeExtractor) extractPartText(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open part: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var builder strings.Builder
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.CharData:
			builder.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "si" || t.Name.Local == "h" {
				builder.WriteString("\n")
			}
		}
	}

	return strings.TrimSpace(builder.String()), nil
}
