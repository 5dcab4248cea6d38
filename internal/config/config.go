// Package config loads and backfills the scraper's config.json.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/iwsaver/internal/logger"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "config.json"

// PlaceholderEmail is the email written into fresh config files.
const PlaceholderEmail = "example@gmail.com"

// Scraper holds the settings read from config.json.
type Scraper struct {
	AutoContinue   bool    `mapstructure:"auto_continue" json:"auto_continue"`
	WaitTime       float64 `mapstructure:"wait_time" json:"wait_time" validate:"gte=0"`
	MaxPages       int     `mapstructure:"max_pages" json:"max_pages" validate:"min=1"`
	DownloadImages bool    `mapstructure:"download_images" json:"download_images"`
	MaxImageSwaps  int     `mapstructure:"max_image_swaps" json:"max_image_swaps" validate:"gte=0"`
	ImageSwapWait  float64 `mapstructure:"image_swap_wait" json:"image_swap_wait" validate:"gte=0"`
	Email          string  `mapstructure:"email" json:"email"`
	Password       string  `mapstructure:"password" json:"password"`

	StartURL          string  `mapstructure:"start_url" json:"start_url" validate:"required,url"`
	PageNumberPoll    float64 `mapstructure:"page_number_poll" json:"page_number_poll" validate:"gt=0"`
	PageNumberTimeout float64 `mapstructure:"page_number_timeout" json:"page_number_timeout" validate:"gte=0"`
	Headless          bool    `mapstructure:"headless" json:"headless"`
	BrowserPath       string  `mapstructure:"browser_path" json:"browser_path"`
	UserDataDir       string  `mapstructure:"user_data_dir" json:"user_data_dir"`
	LogLevel          string  `mapstructure:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
}

// Defaults returns the values written for missing keys.
func Defaults() map[string]any {
	return map[string]any{
		"auto_continue":       false,
		"wait_time":           3,
		"max_pages":           100,
		"download_images":     true,
		"max_image_swaps":     10,
		"image_swap_wait":     2,
		"email":               PlaceholderEmail,
		"password":            "password",
		"start_url":           "https://infiniteworlds.app/",
		"page_number_poll":    5,
		"page_number_timeout": 120,
		"headless":            false,
		"browser_path":        "",
		"user_data_dir":       "",
		"log_level":           "info",
	}
}

// Default returns the decoded defaults.
func Default() Scraper {
	v := newViper()
	var cfg Scraper
	_ = v.Unmarshal(&cfg)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	return v
}

// Load reads path, creating it with defaults if absent. When keys are
// missing the file is rewritten with them added; existing values and
// unknown keys are kept as written.
func Load(path string) (Scraper, error) {
	if path == "" {
		path = DefaultPath
	}

	v := newViper()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := write(Defaults(), path); err != nil {
			return Scraper{}, err
		}
		logger.Info("created config file with defaults", "path", path)
	case err != nil:
		return Scraper{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		raw := map[string]any{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return Scraper{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
		if missing := backfill(raw); len(missing) > 0 {
			if err := write(raw, path); err != nil {
				return Scraper{}, err
			}
			logger.Info("added missing keys to config file", "path", path, "keys", strings.Join(missing, ","))
		}
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return Scraper{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Scraper
	if err := v.Unmarshal(&cfg); err != nil {
		return Scraper{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Scraper{}, err
	}
	return cfg, nil
}

// backfill adds the default for every known key absent from raw and
// returns the added keys in sorted order.
func backfill(raw map[string]any) []string {
	var missing []string
	for k, val := range Defaults() {
		if _, ok := raw[k]; !ok {
			raw[k] = val
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

func write(raw map[string]any, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// --- Validation ---

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every invalid setting.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

var validate = validator.New()

// Validate checks value ranges.
func (c Scraper) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		out = append(out, ValidationError{Field: e.Field(), Message: formatValidationError(e)})
	}
	return out
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// --- Derived values ---

// HasCredentials reports whether real login credentials are configured.
func (c Scraper) HasCredentials() bool {
	return c.Email != "" && c.Email != PlaceholderEmail && c.Password != ""
}

// Wait is the pause before scraping each page.
func (c Scraper) Wait() time.Duration { return seconds(c.WaitTime) }

// SwapWait is the pause around each image swap.
func (c Scraper) SwapWait() time.Duration { return seconds(c.ImageSwapWait) }

// PagePoll is the interval between page number checks.
func (c Scraper) PagePoll() time.Duration { return seconds(c.PageNumberPoll) }

// PageTimeout bounds the wait for a new page number. Zero means no bound.
func (c Scraper) PageTimeout() time.Duration { return seconds(c.PageNumberTimeout) }

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
