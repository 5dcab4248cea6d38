package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/iwsaver/internal/dom"
)

// fakeTurn is one page of a scripted story.
type fakeTurn struct {
	number     int // 0 renders no "Turn N" marker
	paragraphs []string
	images     []string // cycle shown by the swap control
}

// fakeSite is a scripted Infinite Worlds tab.
type fakeSite struct {
	mu sync.Mutex

	turns   []fakeTurn
	current int
	image   int

	// swapSticks keeps the swap control from advancing the image.
	swapSticks bool
	noSwap     bool
	noNext     bool

	// login flow
	showPlay    bool
	showLogin   bool
	brokenLogin bool
	typed       map[string]string
	submitted   bool

	navigated   []string
	swapClicks  int
	diagnostics []string
	released    int
	closed      bool
}

var _ Browser = (*fakeSite)(nil)

func (s *fakeSite) turn() fakeTurn { return s.turns[s.current] }

func (s *fakeSite) FindByText(_ context.Context, text string) ([]dom.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch text {
	case "Swap image":
		if s.noSwap || len(s.turn().images) == 0 {
			return nil, nil
		}
		return []dom.Element{&fakeElement{site: s, kind: "swap"}}, nil
	case "Next turn":
		if s.noNext || s.current >= len(s.turns)-1 {
			return nil, nil
		}
		return []dom.Element{&fakeElement{site: s, kind: "next"}}, nil
	case "Play now":
		if !s.showPlay {
			return nil, nil
		}
		return []dom.Element{&fakeElement{site: s, kind: "play"}}, nil
	case "Yes, log me in please!":
		if !s.showLogin {
			return nil, nil
		}
		return []dom.Element{&fakeElement{site: s, kind: "confirm"}}, nil
	case "Log In":
		if !s.showLogin {
			return nil, nil
		}
		return []dom.Element{&fakeElement{site: s, kind: "submit"}}, nil
	}
	return nil, nil
}

func (s *fakeSite) QueryAll(_ context.Context, selector string) ([]dom.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case selector == "p":
		var out []dom.Element
		for _, text := range s.turn().paragraphs {
			out = append(out, &fakeElement{site: s, kind: "p", text: text})
		}
		return out, nil
	case strings.Contains(selector, "email") && s.showLogin:
		return []dom.Element{&fakeElement{site: s, kind: "email"}}, nil
	case strings.Contains(selector, "password") && s.showLogin:
		return []dom.Element{&fakeElement{site: s, kind: "password"}}, nil
	}
	return nil, nil
}

func (s *fakeSite) BodyText(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.turn()
	var b strings.Builder
	if t.number > 0 {
		fmt.Fprintf(&b, "Turn %d\n", t.number)
	}
	b.WriteString(strings.Join(t.paragraphs, "\n"))
	return b.String(), nil
}

func (s *fakeSite) Navigate(_ context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	return nil
}

func (s *fakeSite) ReleaseHandles(context.Context) { s.released++ }

func (s *fakeSite) SaveDiagnostics(_ context.Context, label string) []string {
	s.diagnostics = append(s.diagnostics, label)
	return nil
}

func (s *fakeSite) Close() { s.closed = true }

// fakeElement is one control on a fakeSite.
type fakeElement struct {
	site *fakeSite
	kind string
	text string
}

var _ dom.Element = (*fakeElement)(nil)

func (e *fakeElement) Tag(context.Context) (string, error) {
	switch e.kind {
	case "swap", "play", "confirm", "submit":
		return "button", nil
	case "next":
		return "a", nil
	case "img":
		return "img", nil
	case "email", "password":
		return "input", nil
	}
	return "p", nil
}

func (e *fakeElement) Attr(_ context.Context, name string) (string, error) {
	if e.kind == "img" && name == "src" {
		e.site.mu.Lock()
		defer e.site.mu.Unlock()
		imgs := e.site.turn().images
		return imgs[e.site.image%len(imgs)], nil
	}
	return "", nil
}

func (e *fakeElement) Text(context.Context) (string, error)          { return e.text, nil }
func (e *fakeElement) Style(context.Context, string) (string, error) { return "", nil }

func (e *fakeElement) Parent(context.Context) (dom.Element, error) {
	return nil, dom.ErrNotFound
}

func (e *fakeElement) FindAll(_ context.Context, selector string) ([]dom.Element, error) {
	if e.kind == "swap" && selector == "img" {
		return []dom.Element{&fakeElement{site: e.site, kind: "img"}}, nil
	}
	return nil, nil
}

func (e *fakeElement) Displayed(context.Context) (bool, error) { return true, nil }

func (e *fakeElement) NativeClick(context.Context) error {
	s := e.site
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.kind {
	case "swap":
		s.swapClicks++
		if !s.swapSticks {
			s.image++
		}
	case "next":
		s.current++
		s.image = 0
	case "play":
		s.showPlay = false
		s.showLogin = !s.brokenLogin
	case "confirm":
	case "submit":
		s.showLogin = false
		s.submitted = true
	default:
		return dom.ErrNotInteractive
	}
	return nil
}

func (e *fakeElement) ScriptClick(context.Context) error  { return errors.New("no script") }
func (e *fakeElement) PointerClick(context.Context) error { return errors.New("no pointer") }

func (e *fakeElement) NativeType(_ context.Context, text string) error {
	e.site.mu.Lock()
	defer e.site.mu.Unlock()
	if e.site.typed == nil {
		e.site.typed = make(map[string]string)
	}
	e.site.typed[e.kind] = text
	return nil
}

func (e *fakeElement) ScriptFocusType(context.Context, string) error { return errors.New("no script") }
func (e *fakeElement) ScriptSetValue(context.Context, string) error  { return errors.New("no script") }

// fakeFetcher serves image bytes by URL and counts requests.
type fakeFetcher struct {
	mu      sync.Mutex
	content map[string][]byte
	calls   int
}

func (f *fakeFetcher) FetchImage(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	data, ok := f.content[url]
	if !ok {
		return nil, fmt.Errorf("404 %s", url)
	}
	return data, nil
}

// fetcherFor returns a fetcher serving distinct bytes for every URL.
func fetcherFor(urls ...string) *fakeFetcher {
	f := &fakeFetcher{content: make(map[string][]byte)}
	for _, u := range urls {
		f.content[u] = []byte("bytes of " + u)
	}
	return f
}

// noSleep records requested waits without pausing.
type noSleep struct {
	mu    sync.Mutex
	waits int
}

func (n *noSleep) sleep(ctx context.Context, _ time.Duration) error {
	n.mu.Lock()
	n.waits++
	n.mu.Unlock()
	return ctx.Err()
}
