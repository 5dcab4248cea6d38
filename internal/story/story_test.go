package story

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := NewStore(Dirs{
		Stories: filepath.Join(root, "stories"),
		Images:  filepath.Join(root, "images"),
		Audio:   filepath.Join(root, "audio"),
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

// --- Upsert Tests ---

func TestUpsert_AppendsNewPage(t *testing.T) {
	doc := New("Atlantis")
	if updated := doc.Upsert(Page{PageNumber: 1, Text: []string{"a"}}); updated {
		t.Error("first insert should not report an update")
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Images == nil {
		t.Error("images should be normalized to an empty slice")
	}
}

func TestUpsert_RescrapeReplacesInPlace(t *testing.T) {
	doc := New("Atlantis")
	doc.Upsert(Page{PageNumber: 1, Text: []string{"one"}})
	doc.Upsert(Page{PageNumber: 2, Text: []string{"two"}, Images: []string{"page_2_0.jpg"}})

	updated := doc.Upsert(Page{PageNumber: 2, Text: []string{"two, again"}})
	if !updated {
		t.Error("expected update of existing page")
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}
	if got := doc.Pages[1].Text[0]; got != "two, again" {
		t.Errorf("page 2 text = %q", got)
	}
	if doc.Pages[1].PageNumber != 2 {
		t.Error("page order should be unchanged")
	}
}

func TestUpsert_MergesAudioKeys(t *testing.T) {
	doc := New("s")
	doc.Upsert(Page{PageNumber: 1, Text: []string{"a", "b"}, Audio: map[string]string{"0": "old.wav", "1": "keep.wav"}})
	doc.Upsert(Page{PageNumber: 1, Text: []string{"a", "b"}, Audio: map[string]string{"0": "new.wav"}})

	audio := doc.Pages[0].Audio
	if audio["0"] != "new.wav" {
		t.Errorf("incoming audio should win, got %q", audio["0"])
	}
	if audio["1"] != "keep.wav" {
		t.Errorf("existing audio key should survive, got %q", audio["1"])
	}
}

func TestUpsert_KeepsAudioWhenIncomingHasNone(t *testing.T) {
	doc := New("s")
	doc.Upsert(Page{PageNumber: 3, Text: []string{"a"}, Audio: map[string]string{"0": "x.wav"}})
	doc.Upsert(Page{PageNumber: 3, Text: []string{"b"}})
	if doc.Pages[0].Audio["0"] != "x.wav" {
		t.Error("audio should survive a rescrape")
	}
}

// --- Paragraph Tests ---

func TestUpdateParagraph_ExtendsWithEmpty(t *testing.T) {
	doc := New("s")
	doc.Upsert(Page{PageNumber: 1, Text: []string{"a"}})

	if err := doc.UpdateParagraph(1, 3, "d"); err != nil {
		t.Fatalf("UpdateParagraph() error = %v", err)
	}
	want := []string{"a", "", "", "d"}
	if strings.Join(doc.Pages[0].Text, "|") != strings.Join(want, "|") {
		t.Errorf("text = %q, want %q", doc.Pages[0].Text, want)
	}
}

func TestUpdateParagraph_MissingPage(t *testing.T) {
	doc := New("s")
	err := doc.UpdateParagraph(9, 0, "x")
	if !errors.Is(err, ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound, got %v", err)
	}
}

func TestAddParagraph_ReturnsIndex(t *testing.T) {
	doc := New("s")
	doc.Upsert(Page{PageNumber: 1, Text: []string{"a", "b"}})
	idx, err := doc.AddParagraph(1, "c")
	if err != nil {
		t.Fatalf("AddParagraph() error = %v", err)
	}
	if idx != 2 {
		t.Errorf("index = %d, want 2", idx)
	}
}

func TestDeleteParagraph_ShiftsAudio(t *testing.T) {
	doc := New("s")
	doc.Upsert(Page{
		PageNumber: 1,
		Text:       []string{"a", "b", "c"},
		Audio:      map[string]string{"0": "a.wav", "1": "b.wav", "2": "c.wav"},
	})

	removed, err := doc.DeleteParagraph(1, 1)
	if err != nil {
		t.Fatalf("DeleteParagraph() error = %v", err)
	}
	if removed != "b.wav" {
		t.Errorf("removed = %q", removed)
	}
	p := doc.Pages[0]
	if len(p.Text) != 2 || p.Text[1] != "c" {
		t.Errorf("text = %q", p.Text)
	}
	if p.Audio["0"] != "a.wav" || p.Audio["1"] != "c.wav" {
		t.Errorf("audio = %v", p.Audio)
	}
	if _, ok := p.Audio["2"]; ok {
		t.Error("stale audio key should be gone")
	}
}

func TestSetAudio_RejectsMissingParagraph(t *testing.T) {
	doc := New("s")
	doc.Upsert(Page{PageNumber: 1, Text: []string{"a"}})
	if _, err := doc.SetAudio(1, 5, "x.wav"); !errors.Is(err, ErrParagraphNotFound) {
		t.Errorf("expected ErrParagraphNotFound, got %v", err)
	}
}

// --- Image Tests ---

func TestMoveImage(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		dir     Direction
		want    int
		wantErr error
	}{
		{"down", 0, DirectionDown, 1, nil},
		{"up", 2, DirectionUp, 1, nil},
		{"up at top", 0, DirectionUp, 0, ErrInvalidMove},
		{"down at bottom", 2, DirectionDown, 0, ErrInvalidMove},
		{"out of range", 7, DirectionUp, 0, ErrImageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := New("s")
			doc.Upsert(Page{PageNumber: 1, Images: []string{"a", "b", "c"}})
			got, err := doc.MoveImage(1, tt.index, tt.dir)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MoveImage() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("new index = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDeleteImage(t *testing.T) {
	doc := New("s")
	doc.Upsert(Page{PageNumber: 1, Images: []string{"a.jpg", "b.jpg"}})
	name, err := doc.DeleteImage(1, 0)
	if err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
	if name != "a.jpg" || len(doc.Pages[0].Images) != 1 {
		t.Errorf("unexpected state: %q %v", name, doc.Pages[0].Images)
	}
}

// --- Legacy format Tests ---

func TestPageUnmarshal_StringText(t *testing.T) {
	var p Page
	data := `{"page_number": 4, "text": "first\n\n  second  \n"}`
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(p.Text) != 2 || p.Text[1] != "second" {
		t.Errorf("text = %q", p.Text)
	}
	if p.Images == nil {
		t.Error("missing images should become an empty slice")
	}
}

// --- Store Tests ---

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	doc := New("Atlantis")
	doc.Upsert(Page{PageNumber: 1, Text: []string{"The <gate> opens & closes"}})

	if err := s.Save(doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(s.StoriesDir(), "Atlantis.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(raw), "<gate>") {
		t.Error("story JSON should not HTML-escape text")
	}
	if !strings.Contains(string(raw), "\n  \"pages\"") {
		t.Error("story JSON should be indented by two spaces")
	}

	loaded, err := s.Load("Atlantis")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Pages[0].Text[0] != doc.Pages[0].Text[0] {
		t.Error("text did not round trip")
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load("nope"); !errors.Is(err, ErrStoryNotFound) {
		t.Errorf("expected ErrStoryNotFound, got %v", err)
	}
	doc, err := s.LoadOrNew("nope")
	if err != nil || doc.StoryName != "nope" || len(doc.Pages) != 0 {
		t.Errorf("LoadOrNew() = %+v, %v", doc, err)
	}
}

func TestStore_ListSkipsCorruptFiles(t *testing.T) {
	s := newTestStore(t)
	doc := New("good")
	doc.Upsert(Page{PageNumber: 1, Images: []string{"page_1_0.png"}})
	if err := s.Save(doc); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.StoriesDir(), "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 story, got %d", len(list))
	}
	if list[0].Thumbnail != "/images/good/page_1_0.png" {
		t.Errorf("thumbnail = %q", list[0].Thumbnail)
	}
}

func TestStore_UpdateDoesNotWriteOnError(t *testing.T) {
	s := newTestStore(t)
	doc := New("s")
	doc.Upsert(Page{PageNumber: 1, Text: []string{"a"}})
	if err := s.Save(doc); err != nil {
		t.Fatal(err)
	}

	_, err := s.Update("s", func(d *Document) error {
		d.Pages[0].Text[0] = "changed"
		return ErrInvalidMove
	})
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected callback error, got %v", err)
	}
	loaded, _ := s.Load("s")
	if loaded.Pages[0].Text[0] != "a" {
		t.Error("failed update should not be persisted")
	}
}

// --- Name Tests ---

func TestSanitizeName(t *testing.T) {
	got := SanitizeName(`a<b>c:d"e/f\g|h?i*j`)
	if got != "a_b_c_d_e_f_g_h_i_j" {
		t.Errorf("SanitizeName() = %q", got)
	}
}

func TestValidName(t *testing.T) {
	tests := map[string]bool{
		"Atlantis":      true,
		"Deep Sea":      true,
		"Atlantis_Deep": true,
		"":              false,
		".":             false,
		"..":            false,
		"a/b":           false,
		`a\b`:           false,
	}
	for name, want := range tests {
		if got := ValidName(name); got != want {
			t.Errorf("ValidName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestMediaFilenames(t *testing.T) {
	if got := ImageFilename(3, 1, ""); got != "page_3_1.jpg" {
		t.Errorf("ImageFilename() = %q", got)
	}
	if !regexp.MustCompile(`^p2_5_[0-9a-f]{8}\.wav$`).MatchString(AudioFilename(2, 5)) {
		t.Error("AudioFilename() has wrong shape")
	}
	if !regexp.MustCompile(`^preview_[0-9a-f]{8}\.wav$`).MatchString(PreviewFilename()) {
		t.Error("PreviewFilename() has wrong shape")
	}
}
