package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/iwsaver/internal/logger"
)

// ImageFetcher downloads image bytes.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// FetcherConfig holds configuration for the image fetcher.
type FetcherConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
	Transport   http.RoundTripper
}

// DefaultFetcherConfig returns a desktop Chrome user agent, matching the
// browser that rendered the page, and the 10 second timeout the CDN needs.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		UserAgent:   defaultUserAgent,
		Timeout:     10 * time.Second,
		MaxBodySize: 32 << 20,
	}
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// CollyFetcher fetches images with a fresh colly collector per request.
type CollyFetcher struct {
	config    FetcherConfig
	transport http.RoundTripper
}

// NewCollyFetcher creates a fetcher whose transport carries browser-like TLS
// and headers so the CDN treats it like the tab that rendered the page.
func NewCollyFetcher(cfg FetcherConfig) *CollyFetcher {
	def := DefaultFetcherConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = def.MaxBodySize
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &CollyFetcher{
		config:    cfg,
		transport: cloudflarebp.AddCloudFlareByPass(base),
	}
}

// FetchImage implements ImageFetcher.
func (f *CollyFetcher) FetchImage(ctx context.Context, url string) ([]byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.MaxBodySize(f.config.MaxBodySize),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.WithTransport(f.transport)
	c.SetRequestTimeout(f.config.Timeout)

	var body []byte
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		logger.Debug("image fetched",
			"url", url,
			"status", r.StatusCode,
			"content_type", r.Headers.Get("Content-Type"),
			"size", humanize.Bytes(uint64(len(r.Body))))
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch image (status %d): %w", status, err)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("visit %s: %w", url, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if len(body) == 0 {
		return nil, errors.New("empty image body")
	}
	return body, nil
}
