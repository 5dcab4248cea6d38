package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/iwsaver/internal/browser"
	"github.com/jmylchreest/iwsaver/internal/config"
	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Save a story by driving the browser through its turns",
	Long: `Open the browser on Infinite Worlds, log in with the credentials from
config.json when they are set, and save every turn of the story that is
on screen. The story file is written after each page, so stopping early
keeps everything saved so far.

Settings such as auto_continue, max_pages and max_image_swaps live in
config.json, which is created with defaults on first run.

Examples:
  # Pick or name the story interactively
  iwsaver scrape

  # Save into "Atlantis" without being asked between pages
  iwsaver scrape --story Atlantis --auto-continue`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.StringP("story", "s", "", "story to save into (prompted when empty)")
	flags.Bool("auto-continue", false, "move to the next page without asking (overrides config.json)")
	flags.Bool("headless", false, "run the browser without a window (overrides config.json)")
	flags.Int("max-pages", 0, "stop after this many pages (overrides config.json)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetString("config_file"))
	if err != nil {
		logError("%v", err)
		return err
	}
	initLogger(cfg.LogLevel)
	applyScrapeOverrides(cmd, &cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore()
	if err != nil {
		logError("%v", err)
		return err
	}
	if !cfg.HasCredentials() {
		logInfo("No login credentials in %s; log in manually in the browser window.", viper.GetString("config_file"))
	}

	launch := func() (scraper.Browser, error) {
		s, err := browser.Launch(browser.Options{
			Headless:    cfg.Headless,
			BrowserPath: cfg.BrowserPath,
			UserDataDir: cfg.UserDataDir,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	fetcher := scraper.NewCollyFetcher(scraper.FetcherConfig{})

	name, _ := cmd.Flags().GetString("story")
	runner := scraper.NewRunner(cfg, store, launch, fetcher, terminalPrompter{})
	summary, err := runner.Run(ctx, name)
	if summary.Story != "" {
		logInfo("%s: %d page(s) processed, %d saved (%s)", summary.Story, summary.PagesProcessed, summary.PagesSaved, summary.Stopped)
	}
	if errors.Is(err, errPromptAborted) || errors.Is(err, context.Canceled) {
		logger.Info("scrape stopped", "reason", err)
		return nil
	}
	if err != nil {
		logError("%v", err)
		return err
	}
	return nil
}

func applyScrapeOverrides(cmd *cobra.Command, cfg *config.Scraper) {
	flags := cmd.Flags()
	if flags.Changed("auto-continue") {
		cfg.AutoContinue, _ = flags.GetBool("auto-continue")
	}
	if flags.Changed("headless") {
		cfg.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("max-pages") {
		if n, _ := flags.GetInt("max-pages"); n > 0 {
			cfg.MaxPages = n
		}
	}
}
