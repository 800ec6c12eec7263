package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the full engine configuration for a scrape run
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Scrape      ScrapeConfig    `toml:"scrape"`
	Detection   DetectionConfig `toml:"detection"`
	Documents   DocumentsConfig `toml:"documents"`
	Browser     BrowserConfig   `toml:"browser"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ScrapeConfig controls URL admission, fetching and politeness
type ScrapeConfig struct {
	StartURL              string   `toml:"start_url"`            // Single seed URL
	StartURLs             []string `toml:"start_urls"`           // Multiple seed URLs (takes precedence over start_url)
	BaseURL               string   `toml:"base_url"`             // Fallback seed when neither start_url nor start_urls is set
	AllowedDomains        []string `toml:"allowed_domains"`      // Hosts (and their subdomains) eligible for crawling; empty = seed host only
	ExcludeURLPatterns    []string `toml:"exclude_url_patterns"` // Case-insensitive substring rejects
	MaxDepth              int      `toml:"max_depth" validate:"gte=0"`
	MaxPages              int      `toml:"max_pages" validate:"gte=1"`
	MaxConcurrentRequests int      `toml:"max_concurrent_requests" validate:"gte=1"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds" validate:"gte=1"`
	MinDelayMs            int      `toml:"min_delay_between_requests_ms" validate:"gte=0"`
	MaxDelayMs            int      `toml:"max_delay_between_requests_ms" validate:"gte=0"`
	UserAgent             string   `toml:"user_agent"`
	RespectRobotsTxt      bool     `toml:"respect_robots_txt"`
	ProcessJsHeavyPages   bool     `toml:"process_js_heavy_pages"` // Render every page through the browser pool
	JsHeavySites          []string `toml:"js_heavy_sites"`         // Hosts always routed through the browser pool
	MaxBodySize           int      `toml:"max_body_size"`          // Maximum response body size in bytes
}

// DetectionConfig controls change detection and version tracking
type DetectionConfig struct {
	EnableChangeDetection      bool     `toml:"enable_change_detection"`
	TrackContentVersions       bool     `toml:"track_content_versions"`
	MaxVersionsToKeep          int      `toml:"max_versions_to_keep" validate:"gte=1"`
	SignificantChangeThreshold int      `toml:"significant_change_threshold" validate:"gte=1"` // Changed sentences above this count produce a report
	NotifyOnChanges            bool     `toml:"notify_on_changes"`
	NotificationEmail          string   `toml:"notification_email"` // Carried on reports as consumer metadata only
	KeywordAlertList           []string `toml:"keyword_alert_list"` // Added sentences containing any of these mark a report critical
}

// DocumentsConfig controls binary document handling
type DocumentsConfig struct {
	ProcessPdfDocuments    bool `toml:"process_pdf_documents"`
	ProcessOfficeDocuments bool `toml:"process_office_documents"`
}

// BrowserConfig controls the headless browser pool
type BrowserConfig struct {
	PoolSize           int           `toml:"pool_size" validate:"gte=1"`
	JavaScriptWaitTime time.Duration `toml:"javascript_wait_time"` // Settle time after the DOM is ready
	Headless           bool          `toml:"headless"`
	DisableGPU         bool          `toml:"disable_gpu"`
	NoSandbox          bool          `toml:"no_sandbox"`
}

// StorageConfig controls persistence locations and behavior
type StorageConfig struct {
	DataDir                string `toml:"data_dir"`                  // Root for scraper_state.db, version_history.json and page artifacts
	EnablePersistentState  bool   `toml:"enable_persistent_state"`   // Reload visited set and state across runs
	StoreContentInDatabase bool   `toml:"store_content_in_database"` // Keep full page bodies in the store, not only records
	ResetOnStartup         bool   `toml:"reset_on_startup"`          // Delete the store on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in lustro.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Scrape: ScrapeConfig{
			MaxDepth:              3,
			MaxPages:              100,
			MaxConcurrentRequests: 5,
			RequestTimeoutSeconds: 30,
			MinDelayMs:            500,
			MaxDelayMs:            2000,
			UserAgent:             "Lustro/" + Version,
			RespectRobotsTxt:      true,
			ProcessJsHeavyPages:   false,
			MaxBodySize:           10 * 1024 * 1024, // 10MB
		},
		Detection: DetectionConfig{
			EnableChangeDetection:      true,
			TrackContentVersions:       true,
			MaxVersionsToKeep:          5,
			SignificantChangeThreshold: 3,
			NotifyOnChanges:            false,
		},
		Documents: DocumentsConfig{
			ProcessPdfDocuments:    true,
			ProcessOfficeDocuments: false,
		},
		Browser: BrowserConfig{
			PoolSize:           2,
			JavaScriptWaitTime: 3 * time.Second,
			Headless:           true,
			DisableGPU:         true,
			NoSandbox:          true,
		},
		Storage: StorageConfig{
			DataDir:                "./data",
			EnablePersistentState:  true,
			StoreContentInDatabase: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files override
// earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// SeedURLs resolves the effective seed list.
// Precedence: start_urls > start_url > base_url.
func (c *Config) SeedURLs() []string {
	if len(c.Scrape.StartURLs) > 0 {
		return c.Scrape.StartURLs
	}
	if c.Scrape.StartURL != "" {
		return []string{c.Scrape.StartURL}
	}
	if c.Scrape.BaseURL != "" {
		return []string{c.Scrape.BaseURL}
	}
	return nil
}

// RequestTimeout returns the per-request timeout as a duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Scrape.RequestTimeoutSeconds) * time.Second
}

// MinDelay returns the politeness floor between requests to one domain
func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.Scrape.MinDelayMs) * time.Millisecond
}

// MaxDelay returns the politeness ceiling between requests to one domain
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.Scrape.MaxDelayMs) * time.Millisecond
}

// Validate checks tag constraints and cross-field rules
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// An empty seed list is valid: the run completes immediately with
	// zero processed URLs
	if c.Scrape.MinDelayMs > c.Scrape.MaxDelayMs {
		return fmt.Errorf("config validation failed: min_delay_between_requests_ms (%d) exceeds max_delay_between_requests_ms (%d)",
			c.Scrape.MinDelayMs, c.Scrape.MaxDelayMs)
	}
	if c.Detection.NotifyOnChanges && !c.Detection.EnableChangeDetection {
		return fmt.Errorf("config validation failed: notify_on_changes requires enable_change_detection")
	}
	return nil
}

// applyEnvOverrides applies LUSTRO_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("LUSTRO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Scrape configuration
	if startURL := os.Getenv("LUSTRO_START_URL"); startURL != "" {
		config.Scrape.StartURL = startURL
	}
	if startURLs := os.Getenv("LUSTRO_START_URLS"); startURLs != "" {
		config.Scrape.StartURLs = splitAndTrim(startURLs, ",")
	}
	if domains := os.Getenv("LUSTRO_ALLOWED_DOMAINS"); domains != "" {
		config.Scrape.AllowedDomains = splitAndTrim(domains, ",")
	}
	if patterns := os.Getenv("LUSTRO_EXCLUDE_URL_PATTERNS"); patterns != "" {
		config.Scrape.ExcludeURLPatterns = splitAndTrim(patterns, ",")
	}
	if maxDepth := os.Getenv("LUSTRO_MAX_DEPTH"); maxDepth != "" {
		if md, err := strconv.Atoi(maxDepth); err == nil {
			config.Scrape.MaxDepth = md
		}
	}
	if maxPages := os.Getenv("LUSTRO_MAX_PAGES"); maxPages != "" {
		if mp, err := strconv.Atoi(maxPages); err == nil {
			config.Scrape.MaxPages = mp
		}
	}
	if concurrency := os.Getenv("LUSTRO_MAX_CONCURRENT_REQUESTS"); concurrency != "" {
		if mc, err := strconv.Atoi(concurrency); err == nil {
			config.Scrape.MaxConcurrentRequests = mc
		}
	}
	if timeout := os.Getenv("LUSTRO_REQUEST_TIMEOUT_SECONDS"); timeout != "" {
		if rt, err := strconv.Atoi(timeout); err == nil {
			config.Scrape.RequestTimeoutSeconds = rt
		}
	}
	if userAgent := os.Getenv("LUSTRO_USER_AGENT"); userAgent != "" {
		config.Scrape.UserAgent = userAgent
	}
	if robots := os.Getenv("LUSTRO_RESPECT_ROBOTS_TXT"); robots != "" {
		if rr, err := strconv.ParseBool(robots); err == nil {
			config.Scrape.RespectRobotsTxt = rr
		}
	}
	if jsPages := os.Getenv("LUSTRO_PROCESS_JS_HEAVY_PAGES"); jsPages != "" {
		if jp, err := strconv.ParseBool(jsPages); err == nil {
			config.Scrape.ProcessJsHeavyPages = jp
		}
	}

	// Detection configuration
	if detect := os.Getenv("LUSTRO_ENABLE_CHANGE_DETECTION"); detect != "" {
		if ed, err := strconv.ParseBool(detect); err == nil {
			config.Detection.EnableChangeDetection = ed
		}
	}
	if track := os.Getenv("LUSTRO_TRACK_CONTENT_VERSIONS"); track != "" {
		if tv, err := strconv.ParseBool(track); err == nil {
			config.Detection.TrackContentVersions = tv
		}
	}
	if maxVersions := os.Getenv("LUSTRO_MAX_VERSIONS_TO_KEEP"); maxVersions != "" {
		if mv, err := strconv.Atoi(maxVersions); err == nil {
			config.Detection.MaxVersionsToKeep = mv
		}
	}
	if keywords := os.Getenv("LUSTRO_KEYWORD_ALERT_LIST"); keywords != "" {
		config.Detection.KeywordAlertList = splitAndTrim(keywords, ",")
	}

	// Storage configuration
	if dataDir := os.Getenv("LUSTRO_DATA_DIR"); dataDir != "" {
		config.Storage.DataDir = dataDir
	}
	if persistent := os.Getenv("LUSTRO_ENABLE_PERSISTENT_STATE"); persistent != "" {
		if ep, err := strconv.ParseBool(persistent); err == nil {
			config.Storage.EnablePersistentState = ep
		}
	}

	// Logging configuration
	if level := os.Getenv("LUSTRO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("LUSTRO_LOG_OUTPUT"); output != "" {
		if outputs := splitAndTrim(output, ","); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

func splitAndTrim(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
