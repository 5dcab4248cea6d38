// Package dom resolves the page controls iwsaver needs and interacts with
// them through layered fallbacks. It works against any Document: a live
// browser tab or a static HTML snapshot.
package dom

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means a lookup matched nothing. It is a normal outcome.
	ErrNotFound = errors.New("element not found")

	// ErrNotInteractive is returned by documents that cannot be clicked or typed into.
	ErrNotInteractive = errors.New("document is not interactive")

	// ErrInteractionFailed means every click or input strategy failed.
	ErrInteractionFailed = errors.New("all interaction strategies failed")
)

// Element is a handle on one node of a Document.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag(ctx context.Context) (string, error)

	// Attr returns the attribute value, or "" when absent.
	Attr(ctx context.Context, name string) (string, error)

	// Text returns the rendered text of the element and its descendants.
	Text(ctx context.Context) (string, error)

	// Style returns the computed value of a CSS property.
	Style(ctx context.Context, property string) (string, error)

	// Parent returns the parent element, or ErrNotFound at the root.
	Parent(ctx context.Context) (Element, error)

	// FindAll returns descendants matching a CSS selector.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// Displayed reports whether the element is rendered and visible.
	Displayed(ctx context.Context) (bool, error)

	// NativeClick clicks using real input events at the element's position.
	NativeClick(ctx context.Context) error

	// ScriptClick calls the element's click() method.
	ScriptClick(ctx context.Context) error

	// PointerClick dispatches a synthetic pointer and mouse event sequence.
	PointerClick(ctx context.Context) error

	// NativeType focuses, clears and types text as key events.
	NativeType(ctx context.Context, text string) error

	// ScriptFocusType focuses through script and types text as key events.
	ScriptFocusType(ctx context.Context, text string) error

	// ScriptSetValue assigns the value and fires input and change events.
	ScriptSetValue(ctx context.Context, text string) error
}

// Document is a queryable page.
type Document interface {
	// FindByText returns elements whose own text contains text, in document order.
	FindByText(ctx context.Context, text string) ([]Element, error)

	// QueryAll returns elements matching a CSS selector, in document order.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// BodyText returns the rendered text of the whole body.
	BodyText(ctx context.Context) (string, error)
}
