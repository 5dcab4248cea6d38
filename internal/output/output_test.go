package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/iwsaver/internal/story"
)

func testStory(name string) *story.Document {
	doc := story.New(name)
	doc.Upsert(story.Page{
		PageNumber: 1,
		Text:       []string{"The tide rose.", "", "Bubbles <drifted> up."},
		Images:     []string{"page_1_0.png"},
		Audio:      map[string]string{"0": "p1_0_abcd1234.wav"},
	})
	doc.Upsert(story.Page{PageNumber: 2, Text: []string{"The gate opened."}})
	return doc
}

// --- NewWriter Factory Tests ---

func TestNewWriter_Formats(t *testing.T) {
	tests := []struct {
		format Format
		check  func(Writer) bool
	}{
		{FormatJSON, func(w Writer) bool { _, ok := w.(*JSONWriter); return ok }},
		{FormatJSONL, func(w Writer) bool { _, ok := w.(*JSONLWriter); return ok }},
		{FormatYAML, func(w Writer) bool { _, ok := w.(*YAMLWriter); return ok }},
		{FormatMarkdown, func(w Writer) bool { _, ok := w.(*MarkdownWriter); return ok }},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			w, err := NewWriter(&bytes.Buffer{}, tt.format)
			if err != nil {
				t.Fatalf("NewWriter() error = %v", err)
			}
			if !tt.check(w) {
				t.Errorf("unexpected writer type %T", w)
			}
		})
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("unsupported"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected error containing 'unsupported', got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"JSONL", FormatJSONL, false},
		{" yaml ", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- JSONWriter Tests ---

func TestJSONWriter_SingleStoryIsObject(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "  ")
	if err := w.WriteStory(testStory("Atlantis")); err != nil {
		t.Fatalf("WriteStory() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got story.Document
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a story object: %v\n%s", err, buf.String())
	}
	if got.StoryName != "Atlantis" || len(got.Pages) != 2 {
		t.Errorf("got story %q with %d pages", got.StoryName, len(got.Pages))
	}
	if !strings.Contains(buf.String(), `"story_name": "Atlantis"`) {
		t.Errorf("expected indented story_name key, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Bubbles <drifted> up.") {
		t.Error("expected HTML characters to be left unescaped")
	}
}

func TestJSONWriter_MultipleStoriesAreArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")
	_ = w.WriteStory(testStory("Atlantis"))
	_ = w.WriteStory(testStory("Lemuria"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []story.Document
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not an array: %v", err)
	}
	if len(got) != 2 || got[1].StoryName != "Lemuria" {
		t.Errorf("got %+v", got)
	}
	if strings.Count(strings.TrimSpace(buf.String()), "\n") != 0 {
		t.Error("compact output should be a single line")
	}
}

func TestJSONWriter_CustomIndent(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "\t")
	_ = w.WriteStory(testStory("Atlantis"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\n\t\"pages\"") {
		t.Errorf("expected tab indentation, got:\n%s", buf.String())
	}
}

func TestJSONWriter_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "  ")
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("empty output = %q, want []", got)
	}
}

// --- JSONLWriter Tests ---

func TestJSONLWriter_OneLinePerPage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)
	if err := w.WriteStory(testStory("Atlantis")); err != nil {
		t.Fatalf("WriteStory() error = %v", err)
	}

	var records []PageRecord
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec PageRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line %q is not a page record: %v", sc.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].StoryName != "Atlantis" || records[0].PageNumber != 1 {
		t.Errorf("first record = %+v", records[0])
	}
	if records[0].Audio["0"] != "p1_0_abcd1234.wav" {
		t.Errorf("audio = %v", records[0].Audio)
	}
	if records[1].Images == nil {
		t.Error("images should serialize as an empty array")
	}
}

func TestJSONLWriter_EmptyStory(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)
	if err := w.WriteStory(story.New("Empty")); err != nil {
		t.Fatalf("WriteStory() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

// --- YAMLWriter Tests ---

func TestYAMLWriter_SingleStory(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)
	_ = w.WriteStory(testStory("Atlantis"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got story.Document
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if got.StoryName != "Atlantis" || len(got.Pages) != 2 {
		t.Errorf("got story %q with %d pages", got.StoryName, len(got.Pages))
	}
	if !strings.Contains(buf.String(), "story_name: Atlantis") {
		t.Errorf("expected story_name key, got:\n%s", buf.String())
	}
}

func TestYAMLWriter_MultipleStories(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)
	_ = w.WriteStory(testStory("Atlantis"))
	_ = w.WriteStory(testStory("Lemuria"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []story.Document
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d stories, want 2", len(got))
	}
}

// --- MarkdownWriter Tests ---

func TestMarkdownWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatMarkdown, WithImageBase("https://example.test/images/"))
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.WriteStory(testStory("Deep Sea")); err != nil {
		t.Fatalf("WriteStory() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Deep Sea\n",
		"\n## Page 1\n",
		"\nThe tide rose.\n",
		"![Page 1 image 1](https://example.test/images/Deep%20Sea/page_1_0.png)",
		"\n## Page 2\n\nThe gate opened.\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\n\n\n") {
		t.Errorf("blank paragraphs should be skipped:\n%s", out)
	}
}

func TestMarkdownWriter_RelativeLinks(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatMarkdown, WithImageBase(""))
	_ = w.WriteStory(testStory("Atlantis"))
	if !strings.Contains(buf.String(), "](Atlantis/page_1_0.png)") {
		t.Errorf("expected relative image link, got:\n%s", buf.String())
	}
}

// --- Options ---

func TestNewWriter_WithOptions(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatJSON, WithPretty(false))
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	_ = w.WriteStory(testStory("Atlantis"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if strings.Contains(buf.String(), "\n  ") {
		t.Errorf("expected compact output, got:\n%s", buf.String())
	}
}
