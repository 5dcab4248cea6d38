// Package browser drives a real Chromium-family browser over the DevTools
// protocol and exposes the open tab as a dom.Document.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/iwsaver/internal/dom"
	"github.com/jmylchreest/iwsaver/internal/logger"
)

// ErrLaunch means the browser could not be started.
var ErrLaunch = errors.New("browser launch failed")

// objectGroup tags every remote object handle so they can be released together.
const objectGroup = "iwsaver"

// Options configures a browser session.
type Options struct {
	Headless     bool
	BrowserPath  string
	UserDataDir  string
	WindowWidth  int
	WindowHeight int
}

// DefaultOptions returns a visible 1280x900 window.
func DefaultOptions() Options {
	return Options{WindowWidth: 1280, WindowHeight: 900}
}

// Session is one browser with a single tab.
type Session struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// Launch starts the browser and opens a tab with the stealth script installed.
func Launch(opts Options) (*Session, error) {
	if opts.WindowWidth == 0 || opts.WindowHeight == 0 {
		def := DefaultOptions()
		opts.WindowWidth, opts.WindowHeight = def.WindowWidth, def.WindowHeight
	}

	flags := allocatorOptions(opts)
	path := opts.BrowserPath
	if path == "" {
		path = FindBrowserPath()
	}
	if path != "" {
		flags = append(flags, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), flags...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("devtools error", "message", fmt.Sprintf(format, args...))
		}),
	)

	if err := chromedp.Run(tabCtx, injectStealthScript()); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	logger.Info("browser opened", "path", path, "headless", opts.Headless)
	return &Session{allocCancel: allocCancel, tabCtx: tabCtx, tabCancel: tabCancel}, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

// run executes actions on the tab, aborting when ctx is cancelled.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate loads url and waits for the body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// HTML returns the current document markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// ReleaseHandles frees every element handle handed out so far.
func (s *Session) ReleaseHandles(ctx context.Context) {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.ReleaseObjectGroup(objectGroup).Do(ctx)
	}))
	if err != nil {
		logger.Debug("release handles failed", "error", err)
	}
}

// SaveDiagnostics writes an HTML snapshot and a screenshot to the temp dir
// and returns the written paths. Failures are logged, not returned.
func (s *Session) SaveDiagnostics(ctx context.Context, label string) []string {
	captureCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stamp := time.Now().UnixNano()
	var written []string

	if html, err := s.HTML(captureCtx); err == nil {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("iwsaver-%s-%d.html", label, stamp))
		if err := os.WriteFile(path, []byte(html), 0o644); err == nil {
			written = append(written, path)
		}
	}

	var shot []byte
	if err := s.run(captureCtx, chromedp.CaptureScreenshot(&shot)); err == nil && len(shot) > 0 {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("iwsaver-%s-%d.png", label, stamp))
		if err := os.WriteFile(path, shot, 0o644); err == nil {
			written = append(written, path)
		}
	}

	if len(written) > 0 {
		logger.Info("diagnostics saved", "files", written)
	}
	return written
}

// --- dom.Document ---

// FindByText implements dom.Document.
func (s *Session) FindByText(ctx context.Context, text string) ([]dom.Element, error) {
	return s.evaluateElements(ctx, fmt.Sprintf(findByTextJS, jsString(text)))
}

// QueryAll implements dom.Document.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	return s.evaluateElements(ctx, fmt.Sprintf(`Array.from(document.querySelectorAll(%s))`, jsString(selector)))
}

// BodyText implements dom.Document.
func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(`document.body ? document.body.innerText : ""`).
			WithReturnByValue(true).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		return decodeValue(res, &text)
	}))
	return text, err
}

const findByTextJS = `(() => {
    const label = %s;
    const out = [];
    for (const el of document.querySelectorAll('*')) {
        for (const n of el.childNodes) {
            if (n.nodeType === Node.TEXT_NODE && n.textContent.includes(label)) {
                out.push(el);
                break;
            }
        }
    }
    return out;
})()`

func (s *Session) evaluateElements(ctx context.Context, expr string) ([]dom.Element, error) {
	var out []dom.Element
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(expr).WithObjectGroup(objectGroup).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		out, err = s.arrayElements(ctx, res)
		return err
	}))
	return out, err
}

// arrayElements turns a remote JS array of elements into handles.
func (s *Session) arrayElements(ctx context.Context, arr *runtime.RemoteObject) ([]dom.Element, error) {
	if arr == nil || arr.ObjectID == "" {
		return nil, nil
	}
	props, _, _, exc, err := runtime.GetProperties(arr.ObjectID).WithOwnProperties(true).Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, fmt.Errorf("script exception: %s", exc.Text)
	}

	type indexed struct {
		i  int
		id runtime.RemoteObjectID
	}
	var items []indexed
	for _, p := range props {
		i, err := strconv.Atoi(p.Name)
		if err != nil || p.Value == nil || p.Value.ObjectID == "" {
			continue
		}
		items = append(items, indexed{i, p.Value.ObjectID})
	}
	sort.Slice(items, func(a, b int) bool { return items[a].i < items[b].i })

	out := make([]dom.Element, len(items))
	for n, it := range items {
		out[n] = &element{s: s, id: it.id}
	}
	return out, nil
}

func decodeValue(res *runtime.RemoteObject, out any) error {
	if res == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(res.Value), out)
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

var _ dom.Document = (*Session)(nil)
