package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/iwsaver/internal/dom"
	"github.com/jmylchreest/iwsaver/internal/logger"
)

// CollectImages cycles through the page's alternate images with the swap
// control until the cycle wraps, the content repeats, the control goes
// away, or max_image_swaps+1 attempts have been made.
func (s *PageScraper) CollectImages(ctx context.Context, pageNumber int) ([]string, error) {
	tracker := NewImageTracker(s.fetcher, s.imageDir, pageNumber, s.cfg.DownloadImages)
	log := logger.With("page", pageNumber)
	wait := s.cfg.SwapWait()
	attempts := s.cfg.MaxImageSwaps + 1

	var failures []error
	for attempt := 0; attempt < attempts; attempt++ {
		stop, err := s.swapStep(ctx, tracker, attempt, attempt == attempts-1, wait)
		if ctx.Err() != nil {
			return tracker.Filenames(), ctx.Err()
		}
		if err != nil {
			log.Warn("image swap attempt failed", "attempt", attempt+1, "error", err)
			failures = append(failures, err)
		}
		if stop {
			break
		}
	}

	log.Info("image collection finished", "unique", tracker.Accepted(), "saved", len(tracker.Filenames()))
	if len(failures) > 0 {
		return tracker.Filenames(), fmt.Errorf("image collection: %w", errors.Join(failures...))
	}
	return tracker.Filenames(), nil
}

// swapStep performs one attempt and reports whether the cycle is over.
// A returned error without stop means the attempt failed and the loop
// moves on to the next one.
func (s *PageScraper) swapStep(ctx context.Context, tracker *ImageTracker, attempt int, last bool, wait time.Duration) (bool, error) {
	log := logger.With("page", tracker.page, "attempt", attempt+1)

	if err := s.sleep(ctx, wait); err != nil {
		return true, err
	}

	img, err := s.resolver.Resolve(ctx, dom.RoleCurrentImage)
	switch {
	case errors.Is(err, dom.ErrNotFound):
		if attempt == 0 {
			log.Info("no image on page")
		} else {
			log.Info("image disappeared, keeping collected images")
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("resolve image: %w", err)
	}

	src, err := img.Attr(ctx, "src")
	if err != nil {
		return false, fmt.Errorf("read image src: %w", err)
	}

	switch {
	case src == "":
		log.Debug("blank image, skipping")
	case tracker.SeenURL(src):
		log.Info("image url repeated, swap cycle complete")
		return true, nil
	default:
		file, err := tracker.Accept(ctx, src)
		switch {
		case errors.Is(err, ErrDuplicateImage):
			log.Info("image content repeated, swap cycle complete")
			return true, nil
		case err != nil:
			log.Warn("image not captured", "url", src, "error", err)
		default:
			log.Info("captured image", "file", file, "count", tracker.Accepted())
		}
	}

	if last {
		return true, nil
	}

	btn, err := s.resolver.Resolve(ctx, dom.RoleSwapButton)
	if errors.Is(err, dom.ErrNotFound) {
		log.Info("no swap control, ending image collection")
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve swap control: %w", err)
	}
	if err := dom.Click(ctx, btn); err != nil {
		return false, fmt.Errorf("click swap control: %w", err)
	}
	if err := s.sleep(ctx, wait); err != nil {
		return true, err
	}
	return false, nil
}
