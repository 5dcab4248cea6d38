package scraper

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
)

// ImageTracker decides whether a candidate image is new for the current
// page and saves the ones that are. It lives for exactly one page.
type ImageTracker struct {
	fetcher  ImageFetcher
	dir      string
	page     int
	download bool

	seenHashes map[string]struct{}
	seenURLs   map[string]struct{}
	accepted   int
	filenames  []string
}

// NewImageTracker creates a tracker that writes into dir. When download is
// false images are still fetched and hashed for deduplication but not saved.
func NewImageTracker(fetcher ImageFetcher, dir string, page int, download bool) *ImageTracker {
	return &ImageTracker{
		fetcher:    fetcher,
		dir:        dir,
		page:       page,
		download:   download,
		seenHashes: make(map[string]struct{}),
		seenURLs:   make(map[string]struct{}),
	}
}

// SeenURL reports whether src was already accepted on this page.
func (t *ImageTracker) SeenURL(src string) bool {
	_, ok := t.seenURLs[src]
	return ok
}

// Accepted returns how many unique images were accepted.
func (t *ImageTracker) Accepted() int { return t.accepted }

// Filenames returns the saved image filenames in capture order.
func (t *ImageTracker) Filenames() []string {
	out := make([]string, len(t.filenames))
	copy(out, t.filenames)
	return out
}

// Accept fetches src and records it if its content is new. It returns the
// saved filename, which is empty when downloads are disabled.
func (t *ImageTracker) Accept(ctx context.Context, src string) (string, error) {
	if src == "" {
		return "", fmt.Errorf("%w: empty src", ErrImageUnavailable)
	}

	data, err := t.fetcher.FetchImage(ctx, src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}

	sum := md5.Sum(data)
	digest := hex.EncodeToString(sum[:])
	if _, dup := t.seenHashes[digest]; dup {
		return "", fmt.Errorf("%w: %s", ErrDuplicateImage, digest)
	}

	var filename string
	if t.download {
		filename = story.ImageFilename(t.page, len(t.filenames), imageExt(src))
		if err := t.write(filename, data); err != nil {
			return "", err
		}
		t.filenames = append(t.filenames, filename)
	}

	t.seenHashes[digest] = struct{}{}
	t.seenURLs[src] = struct{}{}
	t.accepted++
	logger.Debug("image accepted", "page", t.page, "url", src, "md5", digest, "file", filename)
	return filename, nil
}

func (t *ImageTracker) write(filename string, data []byte) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(t.dir, filename), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

// imageExt takes the extension from the URL path, defaulting to .jpg.
func imageExt(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ".jpg"
	}
	ext := path.Ext(u.Path)
	if ext == "" || len(ext) > 6 {
		return ".jpg"
	}
	return ext
}
