package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/iwsaver/internal/story"
)

// YAMLWriter writes stories as YAML.
type YAMLWriter struct {
	w    *bufio.Writer
	docs []*story.Document
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteStory buffers a story until Flush.
func (w *YAMLWriter) WriteStory(doc *story.Document) error {
	w.docs = append(w.docs, doc)
	return nil
}

// Flush writes a single story as a mapping and several as a sequence.
func (w *YAMLWriter) Flush() error {
	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	var data any = w.docs
	if len(w.docs) == 1 {
		data = w.docs[0]
	} else if w.docs == nil {
		data = []*story.Document{}
	}
	if err := encoder.Encode(data); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	w.docs = nil
	return w.w.Flush()
}
