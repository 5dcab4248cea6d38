package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/iwsaver/internal/config"
	"github.com/jmylchreest/iwsaver/internal/dom"
	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
)

// Browser is the live tab the runner drives.
type Browser interface {
	dom.Document
	Navigate(ctx context.Context, url string) error
	ReleaseHandles(ctx context.Context)
	SaveDiagnostics(ctx context.Context, label string) []string
	Close()
}

// Launcher opens a browser. Failure aborts the run.
type Launcher func() (Browser, error)

// Decision is the operator's answer between pages.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionWait
	DecisionQuit
)

// Prompter asks the operator for input.
type Prompter interface {
	// SelectStory picks one of existing or returns a new name.
	SelectStory(existing []string) (string, error)

	// Confirm blocks until the operator acknowledges message.
	Confirm(message string) error

	// Continue asks whether to go on to the next page.
	Continue() (Decision, error)
}

// Stop reasons reported in RunSummary.
const (
	StopPageLimit  = "page limit reached"
	StopEndOfStory = "no next turn control"
	StopOperator   = "stopped by operator"
	StopCancelled  = "cancelled"
	StopNextFailed = "next turn click failed"
)

// RunSummary describes a finished run.
type RunSummary struct {
	Story          string
	PagesProcessed int
	PagesSaved     int
	Stopped        string
}

// Runner is the interactive scrape loop.
type Runner struct {
	cfg     config.Scraper
	store   *story.Store
	launch  Launcher
	fetcher ImageFetcher
	prompt  Prompter
	sleep   Sleeper
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSleeper replaces the wait function.
func WithSleeper(s Sleeper) RunnerOption {
	return func(r *Runner) { r.sleep = s }
}

// NewRunner creates a runner.
func NewRunner(cfg config.Scraper, store *story.Store, launch Launcher, fetcher ImageFetcher, prompt Prompter, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:     cfg,
		store:   store,
		launch:  launch,
		fetcher: fetcher,
		prompt:  prompt,
		sleep:   Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scrapes into storyName, asking the operator to pick a story when it
// is empty. The story is saved after every page.
func (r *Runner) Run(ctx context.Context, storyName string) (RunSummary, error) {
	var summary RunSummary

	name, err := r.selectStory(storyName)
	if err != nil {
		return summary, err
	}
	summary.Story = name
	log := logger.With("story", name)

	doc, err := r.store.LoadOrNew(name)
	if err != nil {
		return summary, fmt.Errorf("load story: %w", err)
	}
	log.Info("story loaded", "pages", len(doc.Pages))

	b, err := r.launch()
	if err != nil {
		return summary, fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if ctx.Err() == nil {
			if err := r.prompt.Confirm("Press Enter to close the browser"); err != nil {
				log.Debug("close prompt failed", "error", err)
			}
		}
		b.Close()
	}()

	if err := b.Navigate(ctx, r.cfg.StartURL); err != nil {
		return summary, fmt.Errorf("open %s: %w", r.cfg.StartURL, err)
	}
	log.Info("opened site", "url", r.cfg.StartURL)

	resolver := dom.NewResolver(b, dom.DefaultHeuristics())

	login := NewLogin(resolver, r.sleep, DefaultLoginWaits)
	err = login.Run(ctx, Credentials{Email: r.cfg.Email, Password: r.cfg.Password})
	switch {
	case err == nil:
		log.Info("login completed, navigate to your story and its starting page")
	case errors.Is(err, ErrNotConfigured):
		log.Warn("set email and password in config.json to log in automatically; log in manually for now")
	case ctx.Err() != nil:
		summary.Stopped = StopCancelled
		return summary, ctx.Err()
	default:
		log.Warn("automatic login failed, log in manually", "error", err)
	}

	if err := r.prompt.Confirm("Navigate to your story and the starting page in the browser, then press Enter to continue"); err != nil {
		return summary, err
	}

	err = r.loop(ctx, b, resolver, doc, &summary)
	log.Info("scraping finished",
		"processed", summary.PagesProcessed,
		"saved", summary.PagesSaved,
		"stopped", summary.Stopped)
	return summary, err
}

func (r *Runner) loop(ctx context.Context, b Browser, resolver *dom.Resolver, doc *story.Document, summary *RunSummary) error {
	prev := -1
	imageDir := r.store.ImageDir(doc.StoryName)

	for summary.PagesProcessed < r.cfg.MaxPages {
		log := logger.With("story", doc.StoryName, "step", summary.PagesProcessed+1)

		if err := r.sleep(ctx, r.cfg.Wait()); err != nil {
			summary.Stopped = StopCancelled
			return err
		}
		b.ReleaseHandles(ctx)

		ps := NewPageScraper(resolver, r.fetcher, imageDir, r.cfg, r.sleep)
		page, err := ps.Scrape(ctx, prev, len(doc.Pages))
		if ctx.Err() != nil {
			summary.Stopped = StopCancelled
			return ctx.Err()
		}
		if err != nil {
			log.Warn("page scraped with problems", "page", page.PageNumber, "error", err)
			b.SaveDiagnostics(ctx, fmt.Sprintf("page-%d", page.PageNumber))
		}

		if err == nil || len(page.Text) > 0 || len(page.Images) > 0 {
			if doc.Upsert(page) {
				log.Info("page already stored, updated", "page", page.PageNumber)
			}
			prev = page.PageNumber
			if err := r.store.Save(doc); err != nil {
				return fmt.Errorf("save story: %w", err)
			}
			summary.PagesSaved++
			log.Info("story saved", "page", page.PageNumber, "pages", len(doc.Pages))
		}

		next, err := resolver.Resolve(ctx, dom.RoleNextTurn)
		if err != nil {
			log.Info("no next turn control, ending", "error", err)
			summary.Stopped = StopEndOfStory
			return nil
		}
		if err := dom.Click(ctx, next); err != nil {
			if ctx.Err() != nil {
				summary.Stopped = StopCancelled
				return ctx.Err()
			}
			log.Warn("could not click next turn", "error", err)
			summary.Stopped = StopNextFailed
			return nil
		}
		summary.PagesProcessed++

		if r.cfg.AutoContinue {
			log.Info("auto-continuing to next page")
			continue
		}
		quit, err := r.askContinue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				summary.Stopped = StopCancelled
			}
			return err
		}
		if quit {
			summary.Stopped = StopOperator
			return nil
		}
	}

	summary.Stopped = StopPageLimit
	return nil
}

// askContinue asks again after wait_time while the operator answers "wait".
func (r *Runner) askContinue(ctx context.Context) (bool, error) {
	for {
		d, err := r.prompt.Continue()
		if err != nil {
			return false, err
		}
		switch d {
		case DecisionQuit:
			return true, nil
		case DecisionContinue:
			return false, nil
		}
		logger.Info("waiting before asking again", "wait", r.cfg.Wait())
		if err := r.sleep(ctx, r.cfg.Wait()); err != nil {
			return false, err
		}
	}
}

func (r *Runner) selectStory(name string) (string, error) {
	if name == "" {
		existing, err := r.store.Names()
		if err != nil {
			return "", fmt.Errorf("list stories: %w", err)
		}
		name, err = r.prompt.SelectStory(existing)
		if err != nil {
			return "", err
		}
	}
	name = story.SanitizeName(strings.TrimSpace(name))
	if !story.ValidName(name) {
		return "", fmt.Errorf("%w: %q", story.ErrInvalidName, name)
	}
	return name, nil
}
