// -----------------------------------------------------------------------
// Lustro - stateful web crawling and content monitoring engine
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lustro/internal/app"
	"github.com/ternarybob/lustro/internal/common"
)

const exitCodeInterrupted = 130

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	startURL    = flag.String("url", "", "Seed URL (overrides config)")
	maxPages    = flag.Int("max-pages", 0, "Maximum pages per run (overrides config)")
	maxDepth    = flag.Int("max-depth", -1, "Maximum crawl depth (overrides config)")
	dataDir     = flag.String("data", "", "Data directory (overrides config)")
	quiet       = flag.Bool("quiet", false, "Suppress the startup banner")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Lustro version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover lustro.toml next to the binary or in the working dir
	if len(configFiles) == 0 {
		if _, err := os.Stat("lustro.toml"); err == nil {
			configFiles = append(configFiles, "lustro.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	applyFlagOverrides(config)

	logger := common.InitLogger(config)

	if !*quiet {
		common.PrintBanner(common.GetVersion())
	}

	logger.Info().
		Strs("config_files", configFiles).
		Strs("seeds", config.SeedURLs()).
		Int("max_pages", config.Scrape.MaxPages).
		Int("max_depth", config.Scrape.MaxDepth).
		Str("data_dir", config.Storage.DataDir).
		Msg("Configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to assemble engine")
		os.Exit(1)
	}
	defer application.Close()

	runErr := make(chan error, 1)
	go func() {
		runErr <- application.Run(context.Background())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-runErr:
		if err != nil {
			logger.Error().Err(err).Msg("Crawl run failed")
			os.Exit(1)
		}
		logger.Info().Msg("Crawl run complete")

	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown requested; draining in-flight work")

		// A second signal aborts immediately
		go func() {
			<-sigChan
			logger.Warn().Msg("Second signal received; exiting immediately")
			os.Exit(exitCodeInterrupted)
		}()

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := application.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful stop failed")
		}
		<-runErr
		os.Exit(exitCodeInterrupted)
	}
}

// applyFlagOverrides layers CLI flags on top of file and env config
func applyFlagOverrides(config *common.Config) {
	if *startURL != "" {
		config.Scrape.StartURLs = nil
		config.Scrape.StartURL = *startURL
	}
	if *maxPages > 0 {
		config.Scrape.MaxPages = *maxPages
	}
	if *maxDepth >= 0 {
		config.Scrape.MaxDepth = *maxDepth
	}
	if *dataDir != "" {
		config.Storage.DataDir = *dataDir
	}
}
