// Package narration turns story paragraphs into stored audio files.
package narration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
	"github.com/jmylchreest/iwsaver/internal/tts"
)

// Narrator synthesizes paragraphs with a voice registry and records the
// resulting files in the story store.
type Narrator struct {
	store  *story.Store
	voices *tts.Registry
}

// New creates a narrator.
func New(store *story.Store, voices *tts.Registry) *Narrator {
	return &Narrator{store: store, voices: voices}
}

// Result describes one generated audio file.
type Result struct {
	Filename string
	Bytes    int
}

// Paragraph narrates one paragraph. voice may be a nickname defined on the
// story. The paragraph's previous audio file, if any, is removed once the
// new one is recorded.
func (n *Narrator) Paragraph(ctx context.Context, storyName string, pageNumber, index int, voice string) (Result, error) {
	doc, err := n.store.Load(storyName)
	if err != nil {
		return Result{}, err
	}
	page, err := doc.Page(pageNumber)
	if err != nil {
		return Result{}, err
	}
	if index < 0 || index >= len(page.Text) {
		return Result{}, fmt.Errorf("%w: index %d", story.ErrParagraphNotFound, index)
	}

	audio, err := n.voices.Synthesize(ctx, doc.ResolveVoice(voice), page.Text[index])
	if err != nil {
		return Result{}, err
	}

	filename := story.AudioFilename(pageNumber, index)
	path := n.store.AudioPath(storyName, filename)
	if err := writeMedia(path, audio); err != nil {
		return Result{}, err
	}

	var previous string
	_, err = n.store.Update(storyName, func(doc *story.Document) error {
		var err error
		previous, err = doc.SetAudio(pageNumber, index, filename)
		return err
	})
	if err != nil {
		_ = story.RemoveMedia(path)
		return Result{}, err
	}
	if previous != "" && previous != filename {
		if err := story.RemoveMedia(n.store.AudioPath(storyName, previous)); err != nil {
			logger.Warn("could not remove old narration", "file", previous, "error", err)
		}
	}

	logger.Info("narration generated", "story", storyName, "page", pageNumber, "paragraph", index, "file", filename)
	return Result{Filename: filename, Bytes: len(audio)}, nil
}

// Preview speaks arbitrary text into the preview directory. Nicknames are
// resolved against storyName when it names a stored story.
func (n *Narrator) Preview(ctx context.Context, storyName, voice, text string) (Result, error) {
	if storyName != "" {
		if doc, err := n.store.Load(storyName); err == nil {
			voice = doc.ResolveVoice(voice)
		}
	}

	audio, err := n.voices.Synthesize(ctx, voice, text)
	if err != nil {
		return Result{}, err
	}
	filename := story.PreviewFilename()
	if err := writeMedia(filepath.Join(n.store.PreviewDir(), filename), audio); err != nil {
		return Result{}, err
	}
	return Result{Filename: filename, Bytes: len(audio)}, nil
}

// Task is one paragraph waiting for narration.
type Task struct {
	Page      int
	Paragraph int
}

// Pending lists the paragraphs of a story that should be narrated. Blank
// paragraphs are skipped, as are narrated ones unless overwrite is set.
// A page of 0 selects every page.
func Pending(doc *story.Document, page int, overwrite bool) []Task {
	var tasks []Task
	for _, p := range doc.Pages {
		if page != 0 && p.PageNumber != page {
			continue
		}
		for i, text := range p.Text {
			if len(story.SplitParagraphs(text)) == 0 {
				continue
			}
			if !overwrite && p.Audio[strconv.Itoa(i)] != "" {
				continue
			}
			tasks = append(tasks, Task{Page: p.PageNumber, Paragraph: i})
		}
	}
	return tasks
}

func writeMedia(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write media: %w", err)
	}
	return nil
}
