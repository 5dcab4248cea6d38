package dom

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const fixturePage = `<html><body>
<div class="turn">
  <p>Turn 4</p>
  <div class="card">
    <div class="media">
      <img src="data:image/png;base64,AAAA">
      <img src="https://cdn.example.com/infinite-worlds-images/a.png">
    </div>
    <div class="controls"><button><span>Swap image</span></button></div>
  </div>
</div>
<div class="login">
  <div class="btn-primary"><span><b>Play now</b></span></div>
  <input type="email" id="hidden-email" style="display: none">
  <input name="user_email">
  <input type="password">
  <p>Log In</p>
</div>
<a href="#next">Next turn</a>
</body></html>`

func fixtureResolver(t *testing.T, page string) *Resolver {
	t.Helper()
	doc, err := ParseHTML(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	return NewResolver(doc, DefaultHeuristics())
}

func mustTag(t *testing.T, el Element) string {
	t.Helper()
	tag, err := el.Tag(context.Background())
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	return tag
}

func mustAttr(t *testing.T, el Element, name string) string {
	t.Helper()
	v, err := el.Attr(context.Background(), name)
	if err != nil {
		t.Fatalf("Attr() error = %v", err)
	}
	return v
}

// --- Resolver Tests ---

func TestResolve_CurrentImageClimbsToCard(t *testing.T) {
	r := fixtureResolver(t, fixturePage)
	img, err := r.Resolve(context.Background(), RoleCurrentImage)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if src := mustAttr(t, img, "src"); !strings.Contains(src, "infinite-worlds-images/a.png") {
		t.Errorf("src = %q", src)
	}
}

func TestResolve_CurrentImageRespectsDepth(t *testing.T) {
	h := DefaultHeuristics()
	h.ImageSearchDepth = 2
	doc, _ := ParseHTML(strings.NewReader(fixturePage))
	r := NewResolver(doc, h)

	_, err := r.Resolve(context.Background(), RoleCurrentImage)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound with shallow depth, got %v", err)
	}
}

func TestResolve_SwapButtonUsesParent(t *testing.T) {
	r := fixtureResolver(t, fixturePage)
	el, err := r.Resolve(context.Background(), RoleSwapButton)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if tag := mustTag(t, el); tag != "button" {
		t.Errorf("tag = %q, want button", tag)
	}
}

func TestResolve_SwapButtonMissing(t *testing.T) {
	r := fixtureResolver(t, `<html><body><div><span>Swap image</span></div></body></html>`)
	_, err := r.Resolve(context.Background(), RoleSwapButton)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_PlayNowFindsClassHintAncestor(t *testing.T) {
	r := fixtureResolver(t, fixturePage)
	el, err := r.Resolve(context.Background(), RolePlayNow)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if class := mustAttr(t, el, "class"); class != "btn-primary" {
		t.Errorf("class = %q", class)
	}
}

func TestResolve_LoginSubmitFallsBackToLabel(t *testing.T) {
	r := fixtureResolver(t, fixturePage)
	el, err := r.Resolve(context.Background(), RoleLoginSubmit)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if tag := mustTag(t, el); tag != "p" {
		t.Errorf("tag = %q, want the label itself", tag)
	}
}

func TestResolve_EmailSkipsHiddenInputs(t *testing.T) {
	r := fixtureResolver(t, fixturePage)
	el, err := r.Resolve(context.Background(), RoleEmailInput)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if name := mustAttr(t, el, "name"); name != "user_email" {
		t.Errorf("name = %q", name)
	}
}

func TestResolve_PasswordInput(t *testing.T) {
	r := fixtureResolver(t, fixturePage)
	el, err := r.Resolve(context.Background(), RolePasswordInput)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if typ := mustAttr(t, el, "type"); typ != "password" {
		t.Errorf("type = %q", typ)
	}
}

func TestResolve_NextTurn(t *testing.T) {
	r := fixtureResolver(t, fixturePage)
	el, err := r.Resolve(context.Background(), RoleNextTurn)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if href := mustAttr(t, el, "href"); href != "#next" {
		t.Errorf("href = %q", href)
	}
}

func TestResolve_EmptyPage(t *testing.T) {
	r := fixtureResolver(t, `<html><body></body></html>`)
	for _, role := range Roles {
		if _, err := r.Resolve(context.Background(), role); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", role, err)
		}
	}
}

func TestIsClickable(t *testing.T) {
	page := `<html><body>
<span id="plain">x</span>
<span id="onclick" onclick="go()">x</span>
<span id="cursor" style="cursor: pointer">x</span>
<span id="class" class="Big-Clickable-Thing">x</span>
<input id="input">
</body></html>`
	r := fixtureResolver(t, page)
	tests := map[string]bool{
		"plain":   false,
		"onclick": true,
		"cursor":  true,
		"class":   true,
		"input":   true,
	}
	for id, want := range tests {
		els, _ := r.Document().QueryAll(context.Background(), "#"+id)
		if len(els) != 1 {
			t.Fatalf("fixture missing #%s", id)
		}
		if got := r.IsClickable(context.Background(), els[0]); got != want {
			t.Errorf("IsClickable(#%s) = %v, want %v", id, got, want)
		}
	}
}

func TestBodyText_ExcludesScripts(t *testing.T) {
	doc, _ := ParseHTML(strings.NewReader(`<html><body><p>Turn 12</p><script>var turn = 99;</script></body></html>`))
	text, err := doc.BodyText(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Turn 12") || strings.Contains(text, "99") {
		t.Errorf("BodyText() = %q", text)
	}
}

// --- Interaction Tests ---

type recordingElement struct {
	htmlElement
	fail  map[string]bool
	calls []string
	typed string
}

func (e *recordingElement) try(name string) error {
	e.calls = append(e.calls, name)
	if e.fail[name] {
		return errors.New(name + " failed")
	}
	return nil
}

func (e *recordingElement) NativeClick(context.Context) error  { return e.try("native") }
func (e *recordingElement) ScriptClick(context.Context) error  { return e.try("script") }
func (e *recordingElement) PointerClick(context.Context) error { return e.try("pointer") }

func (e *recordingElement) NativeType(_ context.Context, s string) error {
	e.typed = s
	return e.try("native")
}

func (e *recordingElement) ScriptFocusType(_ context.Context, s string) error {
	e.typed = s
	return e.try("script-focus")
}

func (e *recordingElement) ScriptSetValue(_ context.Context, s string) error {
	e.typed = s
	return e.try("script-value")
}

func TestClick_FirstStrategyWins(t *testing.T) {
	el := &recordingElement{}
	if err := Click(context.Background(), el); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if strings.Join(el.calls, ",") != "native" {
		t.Errorf("calls = %v", el.calls)
	}
}

func TestClick_FallsBackInOrder(t *testing.T) {
	el := &recordingElement{fail: map[string]bool{"native": true, "script": true}}
	if err := Click(context.Background(), el); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if strings.Join(el.calls, ",") != "native,script,pointer" {
		t.Errorf("calls = %v", el.calls)
	}
}

func TestClick_AllFail(t *testing.T) {
	el := &recordingElement{fail: map[string]bool{"native": true, "script": true, "pointer": true}}
	err := Click(context.Background(), el)
	if !errors.Is(err, ErrInteractionFailed) {
		t.Errorf("expected ErrInteractionFailed, got %v", err)
	}
}

func TestClick_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	el := &recordingElement{fail: map[string]bool{"native": true}}
	if err := Click(ctx, el); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(el.calls) != 1 {
		t.Errorf("expected one attempt, got %v", el.calls)
	}
}

func TestType_FallsBackToValue(t *testing.T) {
	el := &recordingElement{fail: map[string]bool{"native": true, "script-focus": true}}
	if err := Type(context.Background(), el, "me@example.org"); err != nil {
		t.Fatalf("Type() error = %v", err)
	}
	if el.typed != "me@example.org" || el.calls[len(el.calls)-1] != "script-value" {
		t.Errorf("typed %q via %v", el.typed, el.calls)
	}
}

func TestStaticDocumentIsNotInteractive(t *testing.T) {
	r := fixtureResolver(t, fixturePage)
	el, err := r.Resolve(context.Background(), RoleNextTurn)
	if err != nil {
		t.Fatal(err)
	}
	if err := Click(context.Background(), el); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("expected ErrNotInteractive in chain, got %v", err)
	}
}
