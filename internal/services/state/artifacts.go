package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/common"
	"github.com/ternarybob/lustro/internal/models"
)

// documentsSubdir is where binary document artifacts live under the data
// directory
const documentsSubdir = "documents"

// artifactWriter owns every file the engine writes besides the store
// itself. Safe names are derived from the URL; when two distinct URLs
// collapse to the same safe name the later one gets a numeric suffix.
type artifactWriter struct {
	dataDir string
	logger  arbor.ILogger

	mu    sync.Mutex
	names map[string]string // safe name -> normalized URL that claimed it
}

func newArtifactWriter(dataDir string, logger arbor.ILogger) *artifactWriter {
	return &artifactWriter{
		dataDir: dataDir,
		logger:  logger,
		names:   make(map[string]string),
	}
}

// pageMeta is the sidecar record written next to each page artifact
type pageMeta struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	ContentType string `json:"content_type"`
	Hash        string `json:"hash"`
	Size        int64  `json:"size"`
	CapturedAt  string `json:"captured_at"`
}

// writePageArtifacts writes <safe>.html, <safe>.txt and <safe>.meta.json
// for a captured page. The first failure aborts the set and is reported
// to the caller, which downgrades it to FileArtifactMissing.
func (w *artifactWriter) writePageArtifacts(item *models.ContentItem) error {
	name := w.claimName(item.NormalizedURL)

	rawExt := ".html"
	if item.ContentType == models.ContentTypePlain {
		rawExt = ".txt"
	}

	if item.Body != "" {
		if err := w.writeFile(name+rawExt, []byte(item.Body)); err != nil {
			return err
		}
	}
	if item.TextContent != "" && rawExt != ".txt" {
		if err := w.writeFile(name+".txt", []byte(item.TextContent)); err != nil {
			return err
		}
	}

	meta := pageMeta{
		URL:         item.URL,
		Title:       item.Title,
		ContentType: item.ContentType,
		Hash:        item.Hash,
		Size:        item.Size,
		CapturedAt:  item.CapturedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode page metadata: %w", err)
	}
	return w.writeFile(name+".meta.json", data)
}

// writeDocumentArtifacts writes documents/<safe>.<ext>, its extracted
// text companion and its metadata sidecar
func (w *artifactWriter) writeDocumentArtifacts(url string, raw []byte, ext string, text string, metadata map[string]interface{}) error {
	name := filepath.Join(documentsSubdir, w.claimName(url))
	ext = strings.TrimPrefix(ext, ".")

	if err := w.writeFile(name+"."+ext, raw); err != nil {
		return err
	}
	if text != "" {
		if err := w.writeFile(name+".txt", []byte(text)); err != nil {
			return err
		}
	}
	if len(metadata) > 0 {
		data, err := json.MarshalIndent(metadata, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode document metadata: %w", err)
		}
		if err := w.writeFile(name+".metadata.json", data); err != nil {
			return err
		}
	}

	w.logger.Debug().Str("url", url).Str("artifact", name+"."+ext).Msg("Document artifacts written")
	return nil
}

// claimName resolves the safe name for a URL, suffixing on collision with
// a different URL. The same URL always maps to the same name.
func (w *artifactWriter) claimName(url string) string {
	base := common.SafeFileName(url)

	w.mu.Lock()
	defer w.mu.Unlock()

	name := base
	for i := 2; ; i++ {
		owner, taken := w.names[name]
		if !taken {
			w.names[name] = url
			return name
		}
		if owner == url {
			return name
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
}

func (w *artifactWriter) writeFile(relPath string, data []byte) error {
	path := filepath.Join(w.dataDir, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", relPath, err)
	}
	return nil
}
