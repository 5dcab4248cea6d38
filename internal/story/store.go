package story

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jmylchreest/iwsaver/internal/logger"
)

// Store persists story documents and their media under three directories.
type Store struct {
	storiesDir string
	imagesDir  string
	audioDir   string

	locks sync.Map // story name -> *sync.Mutex
}

// Dirs names the on-disk layout used by a Store.
type Dirs struct {
	Stories string
	Images  string
	Audio   string
}

// DefaultDirs returns the layout relative to the working directory.
func DefaultDirs() Dirs {
	return Dirs{Stories: "stories", Images: "images", Audio: "audio"}
}

// NewStore creates the directories if needed and returns a Store over them.
func NewStore(dirs Dirs) (*Store, error) {
	def := DefaultDirs()
	if dirs.Stories == "" {
		dirs.Stories = def.Stories
	}
	if dirs.Images == "" {
		dirs.Images = def.Images
	}
	if dirs.Audio == "" {
		dirs.Audio = def.Audio
	}
	for _, d := range []string{dirs.Stories, dirs.Images, dirs.Audio} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return &Store{
		storiesDir: dirs.Stories,
		imagesDir:  dirs.Images,
		audioDir:   dirs.Audio,
	}, nil
}

// StoriesDir returns the directory holding story JSON files.
func (s *Store) StoriesDir() string { return s.storiesDir }

// Summary is a story listing entry.
type Summary struct {
	Name      string `json:"name"`
	PageCount int    `json:"pageCount"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// List returns every readable story, sorted by name. Unreadable files are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.storiesDir)
	if err != nil {
		return nil, fmt.Errorf("read stories dir: %w", err)
	}

	summaries := []Summary{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		doc, err := s.Load(name)
		if err != nil {
			logger.Warn("skipping unreadable story", "story", name, "error", err)
			continue
		}
		sum := Summary{Name: name, PageCount: len(doc.Pages)}
		if img, ok := doc.Thumbnail(); ok {
			sum.Thumbnail = "/images/" + name + "/" + img
		}
		summaries = append(summaries, sum)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

// Names returns the file names of stored stories without extension.
func (s *Store) Names() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.storiesDir, "*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads a story by name.
func (s *Store) Load(name string) (*Document, error) {
	data, err := os.ReadFile(s.storyPath(name)) //#nosec G304
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, name)
		}
		return nil, fmt.Errorf("read story %s: %w", name, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse story %s: %w", name, err)
	}
	if doc.StoryName == "" {
		doc.StoryName = name
	}
	doc.Normalize()
	return &doc, nil
}

// LoadOrNew reads a story, or returns an empty one when none is stored yet.
func (s *Store) LoadOrNew(name string) (*Document, error) {
	doc, err := s.Load(name)
	if errors.Is(err, ErrStoryNotFound) {
		return New(name), nil
	}
	return doc, err
}

// Save writes the whole document atomically.
func (s *Store) Save(doc *Document) error {
	if doc.StoryName == "" {
		return errors.New("story has no name")
	}
	doc.Normalize()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode story: %w", err)
	}

	path := s.storyPath(doc.StoryName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write story: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace story: %w", err)
	}
	return nil
}

// Update loads a story, applies fn and saves the result while holding the
// story's lock. Nothing is written when fn fails.
func (s *Store) Update(name string, fn func(*Document) error) (*Document, error) {
	mu := s.lock(name)
	mu.Lock()
	defer mu.Unlock()

	doc, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.Save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) lock(name string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(SanitizeName(name), &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *Store) storyPath(name string) string {
	return filepath.Join(s.storiesDir, SanitizeName(name)+".json")
}

// --- Media paths ---

// ImageDir returns the image directory of a story.
func (s *Store) ImageDir(name string) string {
	return filepath.Join(s.imagesDir, SanitizeName(name))
}

// ImagePath returns the path of one image file of a story.
func (s *Store) ImagePath(name, file string) string {
	return filepath.Join(s.ImageDir(name), filepath.Base(file))
}

// AudioDir returns the narration directory of a story.
func (s *Store) AudioDir(name string) string {
	return filepath.Join(s.audioDir, SanitizeName(name))
}

// AudioPath returns the path of one narration file of a story.
func (s *Store) AudioPath(name, file string) string {
	return filepath.Join(s.AudioDir(name), filepath.Base(file))
}

// PreviewDir returns the directory for throwaway voice previews.
func (s *Store) PreviewDir() string {
	return filepath.Join(s.audioDir, "previews")
}

// RemoveMedia deletes a media file, ignoring files that are already gone.
func RemoveMedia(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// --- Names ---

var unsafeNameChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_",
	`\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeName replaces characters that are not allowed in file names.
func SanitizeName(name string) string {
	return unsafeNameChars.Replace(name)
}

// ValidName reports whether name is already sanitized and cannot resolve
// outside the story, image and audio directories.
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && SanitizeName(name) == name
}

// ImageFilename names the index-th image captured for a page.
func ImageFilename(page, index int, ext string) string {
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("page_%d_%d%s", page, index, ext)
}

// AudioFilename names a paragraph narration file.
func AudioFilename(page, paragraph int) string {
	return fmt.Sprintf("p%d_%d_%s.wav", page, paragraph, randomHex(4))
}

// PreviewFilename names a voice preview file.
func PreviewFilename() string {
	return "preview_" + randomHex(4) + ".wav"
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
