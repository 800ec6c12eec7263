package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 3, cfg.Scrape.MaxDepth)
	assert.Equal(t, 100, cfg.Scrape.MaxPages)
	assert.Equal(t, 5, cfg.Scrape.MaxConcurrentRequests)
	assert.Equal(t, 30, cfg.Scrape.RequestTimeoutSeconds)
	assert.Equal(t, 500, cfg.Scrape.MinDelayMs)
	assert.Equal(t, 2000, cfg.Scrape.MaxDelayMs)
	assert.True(t, cfg.Scrape.RespectRobotsTxt)
	assert.False(t, cfg.Scrape.ProcessJsHeavyPages)

	assert.True(t, cfg.Detection.EnableChangeDetection)
	assert.True(t, cfg.Detection.TrackContentVersions)
	assert.Equal(t, 5, cfg.Detection.MaxVersionsToKeep)
	assert.Equal(t, 3, cfg.Detection.SignificantChangeThreshold)
	assert.False(t, cfg.Detection.NotifyOnChanges)

	assert.True(t, cfg.Documents.ProcessPdfDocuments)
	assert.False(t, cfg.Documents.ProcessOfficeDocuments)

	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.EnablePersistentState)
	assert.True(t, cfg.Storage.StoreContentInDatabase)

	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.MinDelay())
	assert.Equal(t, 2*time.Second, cfg.MaxDelay())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lustro.toml")

	content := `
[scrape]
start_url = "https://example.com"
allowed_domains = ["example.com", "docs.example.com"]
exclude_url_patterns = ["/login", "/print"]
max_depth = 2
max_pages = 50
max_concurrent_requests = 3

[detection]
keyword_alert_list = ["recall", "regulation"]
significant_change_threshold = 5

[storage]
data_dir = "/tmp/lustro-test"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.Scrape.StartURL)
	assert.Equal(t, []string{"example.com", "docs.example.com"}, cfg.Scrape.AllowedDomains)
	assert.Equal(t, []string{"/login", "/print"}, cfg.Scrape.ExcludeURLPatterns)
	assert.Equal(t, 2, cfg.Scrape.MaxDepth)
	assert.Equal(t, 50, cfg.Scrape.MaxPages)
	assert.Equal(t, 3, cfg.Scrape.MaxConcurrentRequests)
	assert.Equal(t, []string{"recall", "regulation"}, cfg.Detection.KeywordAlertList)
	assert.Equal(t, 5, cfg.Detection.SignificantChangeThreshold)
	assert.Equal(t, "/tmp/lustro-test", cfg.Storage.DataDir)

	// Values not present in the file keep their defaults
	assert.Equal(t, 30, cfg.Scrape.RequestTimeoutSeconds)
	assert.True(t, cfg.Detection.EnableChangeDetection)
}

func TestLoadFromFilesLaterOverrides(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte("[scrape]\nstart_url = \"https://a.example.com\"\nmax_pages = 10\n"), 0644))
	require.NoError(t, os.WriteFile(override, []byte("[scrape]\nmax_pages = 25\n"), 0644))

	cfg, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "https://a.example.com", cfg.Scrape.StartURL)
	assert.Equal(t, 25, cfg.Scrape.MaxPages)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LUSTRO_START_URL", "https://env.example.com")
	t.Setenv("LUSTRO_MAX_PAGES", "7")
	t.Setenv("LUSTRO_ALLOWED_DOMAINS", "env.example.com, other.example.com")
	t.Setenv("LUSTRO_RESPECT_ROBOTS_TXT", "false")
	t.Setenv("LUSTRO_LOG_LEVEL", "debug")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Scrape.StartURL)
	assert.Equal(t, 7, cfg.Scrape.MaxPages)
	assert.Equal(t, []string{"env.example.com", "other.example.com"}, cfg.Scrape.AllowedDomains)
	assert.False(t, cfg.Scrape.RespectRobotsTxt)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSeedURLPrecedence(t *testing.T) {
	tests := []struct {
		name string
		cfg  ScrapeConfig
		want []string
	}{
		{
			name: "start_urls wins",
			cfg: ScrapeConfig{
				StartURL:  "https://single.example.com",
				StartURLs: []string{"https://a.example.com", "https://b.example.com"},
				BaseURL:   "https://base.example.com",
			},
			want: []string{"https://a.example.com", "https://b.example.com"},
		},
		{
			name: "start_url over base_url",
			cfg: ScrapeConfig{
				StartURL: "https://single.example.com",
				BaseURL:  "https://base.example.com",
			},
			want: []string{"https://single.example.com"},
		},
		{
			name: "base_url fallback",
			cfg:  ScrapeConfig{BaseURL: "https://base.example.com"},
			want: []string{"https://base.example.com"},
		},
		{
			name: "nothing configured",
			cfg:  ScrapeConfig{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Scrape.StartURL = tt.cfg.StartURL
			cfg.Scrape.StartURLs = tt.cfg.StartURLs
			cfg.Scrape.BaseURL = tt.cfg.BaseURL
			assert.Equal(t, tt.want, cfg.SeedURLs())
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Scrape.StartURL = "https://example.com"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("empty seed list is valid", func(t *testing.T) {
		// A run without seeds completes immediately with zero pages
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate())
		assert.Empty(t, cfg.SeedURLs())
	})

	t.Run("inverted delays", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Scrape.StartURL = "https://example.com"
		cfg.Scrape.MinDelayMs = 5000
		cfg.Scrape.MaxDelayMs = 100
		assert.Error(t, cfg.Validate())
	})

	t.Run("notify without detection", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Scrape.StartURL = "https://example.com"
		cfg.Detection.EnableChangeDetection = false
		cfg.Detection.NotifyOnChanges = true
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero concurrency", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Scrape.StartURL = "https://example.com"
		cfg.Scrape.MaxConcurrentRequests = 0
		assert.Error(t, cfg.Validate())
	})
}
