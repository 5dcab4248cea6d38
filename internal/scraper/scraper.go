// Package scraper walks an Infinite Worlds story page by page, collecting
// paragraphs and every alternate image, and saves progress after each page.
package scraper

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateImage means the image bytes were already captured for this page.
	ErrDuplicateImage = errors.New("duplicate image")

	// ErrImageUnavailable means the image could not be fetched.
	ErrImageUnavailable = errors.New("image unavailable")

	// ErrPageIncomplete means part of a page could not be read.
	ErrPageIncomplete = errors.New("page incomplete")

	// ErrLoginFailed means a login step could not be completed.
	ErrLoginFailed = errors.New("login failed")

	// ErrNotConfigured means no real credentials are configured.
	ErrNotConfigured = errors.New("login credentials not configured")
)

// Sleeper pauses for d, returning early with ctx's error if it is cancelled.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
