package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/iwsaver/internal/story"
)

// JSONWriter writes stories in the story file layout.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
	docs   []*story.Document
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// WriteStory buffers a story until Flush.
func (w *JSONWriter) WriteStory(doc *story.Document) error {
	w.docs = append(w.docs, doc)
	return nil
}

// Flush writes a single story as an object and several as an array.
func (w *JSONWriter) Flush() error {
	var data any = w.docs
	if len(w.docs) == 1 {
		data = w.docs[0]
	} else if w.docs == nil {
		data = []*story.Document{}
	}

	enc := json.NewEncoder(w.w)
	enc.SetEscapeHTML(false)
	if w.pretty {
		enc.SetIndent("", w.indent)
	}
	if err := enc.Encode(data); err != nil {
		return err
	}
	w.docs = nil
	return w.w.Flush()
}

// PageRecord is one line of JSONL output.
type PageRecord struct {
	StoryName  string            `json:"story_name"`
	PageNumber int               `json:"page_number"`
	Text       []string          `json:"text"`
	Images     []string          `json:"images"`
	Audio      map[string]string `json:"audio,omitempty"`
}

// JSONLWriter writes one JSON line per page.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteStory writes every page of doc as its own line.
func (w *JSONLWriter) WriteStory(doc *story.Document) error {
	enc := json.NewEncoder(w.w)
	enc.SetEscapeHTML(false)
	for _, p := range doc.Pages {
		rec := PageRecord{
			StoryName:  doc.StoryName,
			PageNumber: p.PageNumber,
			Text:       nonNil(p.Text),
			Images:     nonNil(p.Images),
			Audio:      p.Audio,
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
