package scraper

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/iwsaver/internal/config"
	"github.com/jmylchreest/iwsaver/internal/dom"
	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
)

var turnPattern = regexp.MustCompile(`(?i)turn\s+(\d+)`)

// ExtractTurnNumber finds the first "turn N" in text.
func ExtractTurnNumber(text string) (int, bool) {
	m := turnPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// PageScraper reads the page currently shown in a Document.
type PageScraper struct {
	resolver *dom.Resolver
	fetcher  ImageFetcher
	imageDir string
	cfg      config.Scraper
	sleep    Sleeper
}

// NewPageScraper creates a scraper writing images into imageDir.
func NewPageScraper(resolver *dom.Resolver, fetcher ImageFetcher, imageDir string, cfg config.Scraper, sleep Sleeper) *PageScraper {
	if sleep == nil {
		sleep = Sleep
	}
	return &PageScraper{
		resolver: resolver,
		fetcher:  fetcher,
		imageDir: imageDir,
		cfg:      cfg,
		sleep:    sleep,
	}
}

// Scrape runs AwaitPageNumber, ExtractText and CollectImages in order.
// prev is the number of the page scraped before this one (-1 at the start)
// and existing is the number of pages already stored. Sub-step failures
// are logged and reported as ErrPageIncomplete alongside the partial page;
// only cancellation aborts.
func (s *PageScraper) Scrape(ctx context.Context, prev, existing int) (story.Page, error) {
	number, err := s.AwaitPageNumber(ctx, prev, existing)
	if err != nil {
		return story.Page{}, err
	}
	log := logger.With("page", number)

	var problems []error

	text, err := s.ExtractText(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return story.Page{}, ctx.Err()
		}
		log.Warn("paragraph extraction failed", "error", err)
		problems = append(problems, err)
	}

	images, err := s.CollectImages(ctx, number)
	if err != nil {
		if ctx.Err() != nil {
			return story.Page{}, ctx.Err()
		}
		problems = append(problems, err)
	}

	page := story.Page{PageNumber: number, Text: text, Images: images}
	log.Info("scraped page", "paragraphs", len(page.Text), "images", len(page.Images))

	if len(problems) > 0 {
		return page, fmt.Errorf("%w: %w", ErrPageIncomplete, errors.Join(problems...))
	}
	return page, nil
}

// AwaitPageNumber polls until the displayed turn number differs from prev.
// Without a readable turn number it numbers the page existing+1. If the
// number still equals prev when the configured timeout runs out, it moves
// past prev so a stuck page cannot hold the run forever.
func (s *PageScraper) AwaitPageNumber(ctx context.Context, prev, existing int) (int, error) {
	poll := s.cfg.PagePoll()
	if poll <= 0 {
		poll = 5 * time.Second
	}
	timeout := s.cfg.PageTimeout()

	var waited time.Duration
	for {
		number := existing + 1
		text, err := s.resolver.Document().BodyText(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			logger.Debug("body text unavailable", "error", err)
		default:
			if n, ok := ExtractTurnNumber(text); ok {
				number = n
			} else {
				logger.Debug("no turn number on page, numbering sequentially", "page", number)
			}
		}

		if number != prev {
			return number, nil
		}

		if timeout > 0 && waited >= timeout {
			bumped := max(existing+1, prev+1)
			logger.Warn("page number did not change, continuing with sequential number",
				"previous", prev, "page", bumped, "waited", waited)
			return bumped, nil
		}

		logger.Info("page number unchanged, waiting", "page", number, "retry_in", poll)
		if err := s.sleep(ctx, poll); err != nil {
			return 0, err
		}
		waited += poll
	}
}

// ExtractText returns the trimmed, non-empty text of every paragraph.
func (s *PageScraper) ExtractText(ctx context.Context) ([]string, error) {
	paras, err := s.resolver.Document().QueryAll(ctx, "p")
	if err != nil {
		return []string{}, fmt.Errorf("find paragraphs: %w", err)
	}

	out := []string{}
	var errs []error
	for _, p := range paras {
		text, err := p.Text(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("read %d paragraphs: %w", len(errs), errors.Join(errs...))
	}
	return out, nil
}
