// Package story defines the persisted story document and the edits applied to it.
package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sentinel errors for story lookups and edits.
var (
	ErrStoryNotFound     = errors.New("story not found")
	ErrPageNotFound      = errors.New("page not found")
	ErrParagraphNotFound = errors.New("paragraph not found")
	ErrImageNotFound     = errors.New("image not found")
	ErrInvalidMove       = errors.New("cannot move image further")
	ErrInvalidName       = errors.New("invalid story name")
)

// Document is one saved story.
type Document struct {
	StoryName      string            `json:"story_name" yaml:"story_name"`
	Pages          []Page            `json:"pages" yaml:"pages"`
	VoiceNicknames map[string]string `json:"voiceNicknames,omitempty" yaml:"voice_nicknames,omitempty"`
}

// Page is a single turn of the story.
type Page struct {
	PageNumber int               `json:"page_number" yaml:"page_number"`
	Text       []string          `json:"text" yaml:"text"`
	Images     []string          `json:"images" yaml:"images"`
	Audio      map[string]string `json:"audio,omitempty" yaml:"audio,omitempty"`
}

// New returns an empty document for the given story name.
func New(name string) *Document {
	return &Document{StoryName: name, Pages: []Page{}}
}

// UnmarshalJSON accepts legacy pages whose text is a single newline separated string.
func (p *Page) UnmarshalJSON(data []byte) error {
	var raw struct {
		PageNumber int               `json:"page_number"`
		Text       json.RawMessage   `json:"text"`
		Images     []string          `json:"images"`
		Audio      map[string]string `json:"audio"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.PageNumber = raw.PageNumber
	p.Images = raw.Images
	p.Audio = raw.Audio
	p.Text = nil

	if len(raw.Text) > 0 && string(raw.Text) != "null" {
		var lines []string
		if err := json.Unmarshal(raw.Text, &lines); err == nil {
			p.Text = lines
		} else {
			var s string
			if err := json.Unmarshal(raw.Text, &s); err != nil {
				return fmt.Errorf("page %d: text must be a string or list of strings", raw.PageNumber)
			}
			p.Text = SplitParagraphs(s)
		}
	}

	p.normalize()
	return nil
}

func (p *Page) normalize() {
	if p.Text == nil {
		p.Text = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

// SplitParagraphs splits newline separated text into trimmed, non-empty paragraphs.
func SplitParagraphs(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Upsert inserts p, or merges it into the existing page with the same number.
// On merge the incoming text and images replace the stored ones and audio
// entries are unioned with the incoming keys winning. It reports whether an
// existing page was updated.
func (d *Document) Upsert(p Page) bool {
	p.normalize()
	for i := range d.Pages {
		existing := &d.Pages[i]
		if existing.PageNumber != p.PageNumber {
			continue
		}
		existing.Text = p.Text
		existing.Images = p.Images
		if len(p.Audio) > 0 {
			if existing.Audio == nil {
				existing.Audio = make(map[string]string, len(p.Audio))
			}
			for k, v := range p.Audio {
				existing.Audio[k] = v
			}
		}
		return true
	}
	d.Pages = append(d.Pages, p)
	return false
}

// Page returns the page with the given number.
func (d *Document) Page(number int) (*Page, error) {
	for i := range d.Pages {
		if d.Pages[i].PageNumber == number {
			return &d.Pages[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrPageNotFound, number)
}

// Thumbnail returns the first image filename in the story, if any.
func (d *Document) Thumbnail() (string, bool) {
	for _, p := range d.Pages {
		if len(p.Images) > 0 {
			return p.Images[0], true
		}
	}
	return "", false
}

// Normalize fills nil slices so the document serializes with empty arrays.
func (d *Document) Normalize() {
	if d.Pages == nil {
		d.Pages = []Page{}
	}
	for i := range d.Pages {
		d.Pages[i].normalize()
	}
}

// SortPages orders pages by page number.
func (d *Document) SortPages() {
	sort.SliceStable(d.Pages, func(i, j int) bool {
		return d.Pages[i].PageNumber < d.Pages[j].PageNumber
	})
}

// --- Paragraph edits ---

// UpdateParagraph sets paragraph index on a page, padding with empty
// paragraphs when the index is past the end.
func (d *Document) UpdateParagraph(pageNumber, index int, text string) error {
	if index < 0 {
		return fmt.Errorf("%w: index %d", ErrParagraphNotFound, index)
	}
	p, err := d.Page(pageNumber)
	if err != nil {
		return err
	}
	for len(p.Text) <= index {
		p.Text = append(p.Text, "")
	}
	p.Text[index] = text
	return nil
}

// AddParagraph appends a paragraph and returns its index.
func (d *Document) AddParagraph(pageNumber int, text string) (int, error) {
	p, err := d.Page(pageNumber)
	if err != nil {
		return 0, err
	}
	p.Text = append(p.Text, text)
	return len(p.Text) - 1, nil
}

// DeleteParagraph removes a paragraph and shifts the audio entries of the
// paragraphs after it. The removed paragraph's audio filename is returned.
func (d *Document) DeleteParagraph(pageNumber, index int) (string, error) {
	p, err := d.Page(pageNumber)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(p.Text) {
		return "", fmt.Errorf("%w: index %d", ErrParagraphNotFound, index)
	}
	p.Text = append(p.Text[:index], p.Text[index+1:]...)

	if len(p.Audio) == 0 {
		return "", nil
	}
	removed := p.Audio[strconv.Itoa(index)]
	shifted := make(map[string]string, len(p.Audio))
	for k, v := range p.Audio {
		i, err := strconv.Atoi(k)
		switch {
		case err != nil:
			shifted[k] = v
		case i < index:
			shifted[k] = v
		case i > index:
			shifted[strconv.Itoa(i-1)] = v
		}
	}
	p.Audio = shifted
	return removed, nil
}

// SetAudio records the narration file for a paragraph and returns the file it replaced.
func (d *Document) SetAudio(pageNumber, index int, filename string) (string, error) {
	p, err := d.Page(pageNumber)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(p.Text) {
		return "", fmt.Errorf("%w: index %d", ErrParagraphNotFound, index)
	}
	if p.Audio == nil {
		p.Audio = make(map[string]string)
	}
	key := strconv.Itoa(index)
	previous := p.Audio[key]
	p.Audio[key] = filename
	return previous, nil
}

// --- Image edits ---

// AddImages appends image filenames to a page.
func (d *Document) AddImages(pageNumber int, filenames ...string) error {
	p, err := d.Page(pageNumber)
	if err != nil {
		return err
	}
	p.Images = append(p.Images, filenames...)
	return nil
}

// DeleteImage removes the image at index and returns its filename.
func (d *Document) DeleteImage(pageNumber, index int) (string, error) {
	p, err := d.Page(pageNumber)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(p.Images) {
		return "", fmt.Errorf("%w: index %d", ErrImageNotFound, index)
	}
	name := p.Images[index]
	p.Images = append(p.Images[:index], p.Images[index+1:]...)
	return name, nil
}

// Direction is an image reorder direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// MoveImage swaps the image at index with its neighbour and returns the new index.
func (d *Document) MoveImage(pageNumber, index int, dir Direction) (int, error) {
	p, err := d.Page(pageNumber)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(p.Images) {
		return 0, fmt.Errorf("%w: index %d", ErrImageNotFound, index)
	}

	var target int
	switch dir {
	case DirectionUp:
		target = index - 1
	case DirectionDown:
		target = index + 1
	default:
		return 0, fmt.Errorf("unknown direction %q", dir)
	}
	if target < 0 || target >= len(p.Images) {
		return 0, ErrInvalidMove
	}

	p.Images[index], p.Images[target] = p.Images[target], p.Images[index]
	return target, nil
}

// --- Voice nicknames ---

// SetVoiceNickname maps a nickname to a voice id.
func (d *Document) SetVoiceNickname(nickname, voice string) {
	if d.VoiceNicknames == nil {
		d.VoiceNicknames = make(map[string]string)
	}
	d.VoiceNicknames[nickname] = voice
}

// DeleteVoiceNickname removes a nickname and reports whether it existed.
func (d *Document) DeleteVoiceNickname(nickname string) bool {
	if _, ok := d.VoiceNicknames[nickname]; !ok {
		return false
	}
	delete(d.VoiceNicknames, nickname)
	return true
}

// ResolveVoice returns the voice id for a nickname, or the input unchanged.
func (d *Document) ResolveVoice(voice string) string {
	if v, ok := d.VoiceNicknames[voice]; ok {
		return v
	}
	return voice
}
