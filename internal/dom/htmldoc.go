package dom

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLDocument is a static Document parsed from saved HTML. It answers
// queries but every interaction returns ErrNotInteractive.
type HTMLDocument struct {
	doc *goquery.Document
}

// ParseHTML parses an HTML snapshot.
func ParseHTML(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

// FindByText implements Document.
func (d *HTMLDocument) FindByText(_ context.Context, text string) ([]Element, error) {
	var out []Element
	d.doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(ownText(s), text) {
			out = append(out, htmlElement{s})
		}
	})
	return out, nil
}

// QueryAll implements Document.
func (d *HTMLDocument) QueryAll(_ context.Context, selector string) ([]Element, error) {
	return wrapSelection(d.doc.Find(selector)), nil
}

// BodyText implements Document.
func (d *HTMLDocument) BodyText(_ context.Context) (string, error) {
	body := d.doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return body.Text(), nil
}

func wrapSelection(s *goquery.Selection) []Element {
	out := make([]Element, 0, s.Length())
	s.Each(func(_ int, el *goquery.Selection) {
		out = append(out, htmlElement{el})
	})
	return out
}

// ownText concatenates the direct text node children of s.
func ownText(s *goquery.Selection) string {
	var sb strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			sb.WriteString(c.Text())
		}
	})
	return sb.String()
}

type htmlElement struct {
	s *goquery.Selection
}

func (e htmlElement) Tag(context.Context) (string, error) {
	return strings.ToLower(goquery.NodeName(e.s)), nil
}

func (e htmlElement) Attr(_ context.Context, name string) (string, error) {
	return e.s.AttrOr(name, ""), nil
}

func (e htmlElement) Text(context.Context) (string, error) {
	return e.s.Text(), nil
}

// Style reads inline styles only; a snapshot carries no computed styles.
func (e htmlElement) Style(_ context.Context, property string) (string, error) {
	return inlineStyle(e.s, property), nil
}

func (e htmlElement) Parent(context.Context) (Element, error) {
	p := e.s.Parent()
	if p.Length() == 0 {
		return nil, ErrNotFound
	}
	return htmlElement{p}, nil
}

func (e htmlElement) FindAll(_ context.Context, selector string) ([]Element, error) {
	return wrapSelection(e.s.Find(selector)), nil
}

func (e htmlElement) Displayed(context.Context) (bool, error) {
	if e.s.AttrOr("type", "") == "hidden" {
		return false, nil
	}
	for s := e.s; s.Length() > 0; s = s.Parent() {
		if _, hidden := s.Attr("hidden"); hidden {
			return false, nil
		}
		if inlineStyle(s, "display") == "none" || inlineStyle(s, "visibility") == "hidden" {
			return false, nil
		}
	}
	return true, nil
}

func (e htmlElement) NativeClick(context.Context) error             { return ErrNotInteractive }
func (e htmlElement) ScriptClick(context.Context) error             { return ErrNotInteractive }
func (e htmlElement) PointerClick(context.Context) error            { return ErrNotInteractive }
func (e htmlElement) NativeType(context.Context, string) error      { return ErrNotInteractive }
func (e htmlElement) ScriptFocusType(context.Context, string) error { return ErrNotInteractive }
func (e htmlElement) ScriptSetValue(context.Context, string) error  { return ErrNotInteractive }

func inlineStyle(s *goquery.Selection, property string) string {
	style, ok := s.Attr("style")
	if !ok {
		return ""
	}
	for _, decl := range strings.Split(style, ";") {
		name, value, found := strings.Cut(decl, ":")
		if found && strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}
