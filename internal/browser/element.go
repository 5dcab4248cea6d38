package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	iwdom "github.com/jmylchreest/iwsaver/internal/dom"
)

// element is a handle on a live DOM node held as a remote object.
type element struct {
	s  *Session
	id runtime.RemoteObjectID
}

var _ iwdom.Element = (*element)(nil)

// call runs fn with this bound to the element and decodes the result into out.
func (e *element) call(ctx context.Context, fn string, out any) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(e.id).
			WithReturnByValue(out != nil).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		if out == nil {
			return nil
		}
		return decodeValue(res, out)
	}))
}

// callElements runs fn and returns the elements of the array it produces.
func (e *element) callElements(ctx context.Context, fn string) ([]iwdom.Element, error) {
	var out []iwdom.Element
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(e.id).
			WithObjectGroup(objectGroup).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		out, err = e.s.arrayElements(ctx, res)
		return err
	}))
	return out, err
}

func (e *element) Tag(ctx context.Context) (string, error) {
	var tag string
	err := e.call(ctx, `function() { return this.tagName ? this.tagName.toLowerCase() : ""; }`, &tag)
	return tag, err
}

// Attr prefers the reflected string property so src and href come back absolute.
func (e *element) Attr(ctx context.Context, name string) (string, error) {
	var v string
	fn := fmt.Sprintf(`function() {
    const n = %s;
    if (n in this && typeof this[n] === 'string') { return this[n]; }
    return this.getAttribute(n) || "";
}`, jsString(name))
	err := e.call(ctx, fn, &v)
	return v, err
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, `function() { return this.innerText || this.textContent || ""; }`, &text)
	return text, err
}

func (e *element) Style(ctx context.Context, property string) (string, error) {
	var v string
	fn := fmt.Sprintf(`function() { return getComputedStyle(this).getPropertyValue(%s); }`, jsString(property))
	err := e.call(ctx, fn, &v)
	return v, err
}

func (e *element) Parent(ctx context.Context) (iwdom.Element, error) {
	var parent iwdom.Element
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(`function() { return this.parentElement; }`).
			WithObjectID(e.id).
			WithObjectGroup(objectGroup).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		if res == nil || res.ObjectID == "" {
			return iwdom.ErrNotFound
		}
		parent = &element{s: e.s, id: res.ObjectID}
		return nil
	}))
	return parent, err
}

func (e *element) FindAll(ctx context.Context, selector string) ([]iwdom.Element, error) {
	return e.callElements(ctx, fmt.Sprintf(`function() { return Array.from(this.querySelectorAll(%s)); }`, jsString(selector)))
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	var visible bool
	err := e.call(ctx, `function() {
    const s = getComputedStyle(this);
    if (s.display === 'none' || s.visibility === 'hidden' || s.opacity === '0') { return false; }
    const r = this.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
}`, &visible)
	return visible, err
}

// --- Clicking ---

func (e *element) NativeClick(ctx context.Context) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithObjectID(e.id).Do(ctx); err != nil {
			return fmt.Errorf("scroll into view: %w", err)
		}
		quads, err := dom.GetContentQuads().WithObjectID(e.id).Do(ctx)
		if err != nil {
			return fmt.Errorf("content quads: %w", err)
		}
		x, y, ok := quadCenter(quads)
		if !ok {
			return errors.New("element has no layout box")
		}
		steps := []*input.DispatchMouseEventParams{
			input.DispatchMouseEvent(input.MouseMoved, x, y),
			input.DispatchMouseEvent(input.MousePressed, x, y).WithButton(input.Left).WithClickCount(1),
			input.DispatchMouseEvent(input.MouseReleased, x, y).WithButton(input.Left).WithClickCount(1),
		}
		for _, step := range steps {
			if err := step.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (e *element) ScriptClick(ctx context.Context) error {
	return e.call(ctx, `function() { this.click(); }`, nil)
}

func (e *element) PointerClick(ctx context.Context) error {
	return e.call(ctx, `function() {
    this.scrollIntoView({block: 'center'});
    const r = this.getBoundingClientRect();
    const opts = {bubbles: true, cancelable: true, view: window,
        clientX: r.left + r.width / 2, clientY: r.top + r.height / 2, button: 0};
    this.dispatchEvent(new PointerEvent('pointerover', opts));
    this.dispatchEvent(new MouseEvent('mouseover', opts));
    this.dispatchEvent(new PointerEvent('pointerdown', opts));
    this.dispatchEvent(new MouseEvent('mousedown', opts));
    this.dispatchEvent(new PointerEvent('pointerup', opts));
    this.dispatchEvent(new MouseEvent('mouseup', opts));
    this.dispatchEvent(new MouseEvent('click', opts));
}`, nil)
}

func quadCenter(quads []dom.Quad) (float64, float64, bool) {
	for _, q := range quads {
		if len(q) < 8 {
			continue
		}
		var x, y float64
		for i := 0; i < 8; i += 2 {
			x += q[i]
			y += q[i+1]
		}
		return x / 4, y / 4, true
	}
	return 0, 0, false
}

// --- Typing ---

const clearValueJS = `function() {
    if ('value' in this) { this.value = ''; }
    this.dispatchEvent(new Event('input', {bubbles: true}));
}`

func (e *element) NativeType(ctx context.Context, text string) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.Focus().WithObjectID(e.id).Do(ctx); err != nil {
			return fmt.Errorf("focus: %w", err)
		}
		if _, exc, err := runtime.CallFunctionOn(clearValueJS).WithObjectID(e.id).Do(ctx); err != nil {
			return fmt.Errorf("clear: %w", err)
		} else if exc != nil {
			return fmt.Errorf("clear: script exception: %s", exc.Text)
		}
		return chromedp.KeyEvent(text).Do(ctx)
	}))
}

func (e *element) ScriptFocusType(ctx context.Context, text string) error {
	if err := e.call(ctx, `function() { this.focus(); }`, nil); err != nil {
		return err
	}
	return e.s.run(ctx, chromedp.KeyEvent(text))
}

// ScriptSetValue goes through the prototype setter so framework-controlled
// inputs see the change.
func (e *element) ScriptSetValue(ctx context.Context, text string) error {
	fn := fmt.Sprintf(`function() {
    const v = %s;
    const desc = Object.getOwnPropertyDescriptor(Object.getPrototypeOf(this), 'value');
    if (desc && desc.set) { desc.set.call(this, v); } else { this.value = v; }
    this.dispatchEvent(new Event('input', {bubbles: true}));
    this.dispatchEvent(new Event('change', {bubbles: true}));
}`, jsString(text))
	return e.call(ctx, fn, nil)
}
