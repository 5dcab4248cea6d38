// Package output renders saved stories for export.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/iwsaver/internal/story"
)

// Format is an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(FormatJSON), string(FormatJSONL), string(FormatYAML), string(FormatMarkdown)}
}

// ParseFormat resolves a format name. "md" and "yml" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatJSONL, FormatYAML, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Writer renders stories to a stream.
type Writer interface {
	// WriteStory outputs or buffers one story.
	WriteStory(doc *story.Document) error

	// Flush ensures all data is written.
	Flush() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty    bool
	indent    string
	imageBase string
}

// WithPretty enables pretty-printing of JSON.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the JSON indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithImageBase sets the prefix used for image links in Markdown output.
// The default links to the story server's /images route.
func WithImageBase(base string) WriterOption {
	return func(c *writerConfig) {
		c.imageBase = base
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty:    true,
		indent:    "  ",
		imageBase: "/images",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	case FormatMarkdown:
		return NewMarkdownWriter(w, cfg.imageBase), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
