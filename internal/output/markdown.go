package output

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/jmylchreest/iwsaver/internal/story"
)

// MarkdownWriter renders stories as readable Markdown, one section per page.
type MarkdownWriter struct {
	w         *bufio.Writer
	imageBase string
}

// NewMarkdownWriter creates a Markdown writer. Image links are
// imageBase/<story>/<file>.
func NewMarkdownWriter(w io.Writer, imageBase string) *MarkdownWriter {
	return &MarkdownWriter{
		w:         bufio.NewWriter(w),
		imageBase: strings.TrimSuffix(imageBase, "/"),
	}
}

// WriteStory writes doc immediately.
func (w *MarkdownWriter) WriteStory(doc *story.Document) error {
	fmt.Fprintf(w.w, "# %s\n", doc.StoryName)
	for _, p := range doc.Pages {
		fmt.Fprintf(w.w, "\n## Page %d\n", p.PageNumber)
		for _, para := range p.Text {
			if strings.TrimSpace(para) == "" {
				continue
			}
			fmt.Fprintf(w.w, "\n%s\n", para)
		}
		for i, img := range p.Images {
			fmt.Fprintf(w.w, "\n![Page %d image %d](%s)\n", p.PageNumber, i+1, w.imageLink(doc.StoryName, img))
		}
	}
	return w.w.Flush()
}

func (w *MarkdownWriter) imageLink(storyName, file string) string {
	path := url.PathEscape(storyName) + "/" + url.PathEscape(file)
	if w.imageBase == "" {
		return path
	}
	return w.imageBase + "/" + path
}

// Flush flushes the buffer.
func (w *MarkdownWriter) Flush() error {
	return w.w.Flush()
}
