package dom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/iwsaver/internal/logger"
)

// Role names a control the scraper needs to find.
type Role string

const (
	RoleSwapButton    Role = "swap-button"
	RoleCurrentImage  Role = "current-image"
	RoleNextTurn      Role = "next-turn"
	RolePlayNow       Role = "play-now"
	RoleConfirmLogin  Role = "confirm-login"
	RoleLoginSubmit   Role = "login-submit"
	RoleEmailInput    Role = "email-input"
	RolePasswordInput Role = "password-input"
)

// Roles lists every role in resolution order for diagnostics.
var Roles = []Role{
	RolePlayNow, RoleConfirmLogin, RoleEmailInput, RolePasswordInput,
	RoleLoginSubmit, RoleCurrentImage, RoleSwapButton, RoleNextTurn,
}

// Heuristics holds the site specific labels and selectors.
type Heuristics struct {
	SwapLabel         string
	NextTurnLabel     string
	PlayNowLabel      string
	ConfirmLoginLabel string
	LoginSubmitLabel  string

	// ImageSourceHints are substrings an image src must contain to count.
	ImageSourceHints []string

	EmailSelectors    []string
	PasswordSelectors []string

	// ImageSearchDepth bounds the ancestor climb from the swap label.
	ImageSearchDepth int

	// ClickableDepth bounds the ancestor climb looking for a clickable element.
	ClickableDepth int

	// ClickableTags are always clickable.
	ClickableTags []string

	// ClickableClassHints mark an element clickable when its class contains one.
	ClickableClassHints []string
}

// DefaultHeuristics returns the labels used by the Infinite Worlds site.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		SwapLabel:         "Swap image",
		NextTurnLabel:     "Next turn",
		PlayNowLabel:      "Play now",
		ConfirmLoginLabel: "Yes, log me in please!",
		LoginSubmitLabel:  "Log In",
		ImageSourceHints:  []string{"infinite-worlds-images", "http"},
		EmailSelectors: []string{
			"input[type='email']",
			"input[placeholder*='email']",
			"input[name*='email']",
			"input[id*='email']",
		},
		PasswordSelectors: []string{
			"input[type='password']",
			"input[placeholder*='password']",
			"input[name*='password']",
			"input[id*='password']",
		},
		ImageSearchDepth:    10,
		ClickableDepth:      5,
		ClickableTags:       []string{"button", "a", "input"},
		ClickableClassHints: []string{"button", "btn", "clickable", "click"},
	}
}

// Resolver finds role elements in a Document.
type Resolver struct {
	doc Document
	h   Heuristics
}

// NewResolver creates a resolver over doc.
func NewResolver(doc Document, h Heuristics) *Resolver {
	return &Resolver{doc: doc, h: h}
}

// Document returns the document being resolved against.
func (r *Resolver) Document() Document { return r.doc }

// Heuristics returns the active heuristics.
func (r *Resolver) Heuristics() Heuristics { return r.h }

// Resolve finds the element playing role. A miss returns ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, role Role) (Element, error) {
	switch role {
	case RoleSwapButton:
		return r.swapButton(ctx)
	case RoleCurrentImage:
		return r.currentImage(ctx)
	case RoleNextTurn:
		return r.firstByText(ctx, r.h.NextTurnLabel)
	case RolePlayNow:
		return r.clickableByText(ctx, r.h.PlayNowLabel)
	case RoleConfirmLogin:
		return r.clickableByText(ctx, r.h.ConfirmLoginLabel)
	case RoleLoginSubmit:
		return r.clickableByText(ctx, r.h.LoginSubmitLabel)
	case RoleEmailInput:
		return r.firstDisplayed(ctx, r.h.EmailSelectors)
	case RolePasswordInput:
		return r.firstDisplayed(ctx, r.h.PasswordSelectors)
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
}

func (r *Resolver) firstByText(ctx context.Context, label string) (Element, error) {
	els, err := r.doc.FindByText(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", label, err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	return els[0], nil
}

func (r *Resolver) clickableByText(ctx context.Context, label string) (Element, error) {
	el, err := r.firstByText(ctx, label)
	if err != nil {
		return nil, err
	}
	return r.ClickableAncestor(ctx, el), nil
}

// swapButton returns the first swap label that is itself a button or link,
// or whose direct parent is.
func (r *Resolver) swapButton(ctx context.Context) (Element, error) {
	els, err := r.doc.FindByText(ctx, r.h.SwapLabel)
	if err != nil {
		return nil, fmt.Errorf("find swap label: %w", err)
	}
	for _, el := range els {
		if r.isButtonLike(ctx, el) {
			return el, nil
		}
		parent, err := el.Parent(ctx)
		if err != nil {
			continue
		}
		if r.isButtonLike(ctx, parent) {
			return parent, nil
		}
	}
	return nil, fmt.Errorf("%w: swap button", ErrNotFound)
}

func (r *Resolver) isButtonLike(ctx context.Context, el Element) bool {
	tag, err := el.Tag(ctx)
	if err == nil && (tag == "button" || tag == "a") {
		return true
	}
	onclick, err := el.Attr(ctx, "onclick")
	return err == nil && onclick != ""
}

// currentImage climbs from each swap label looking for an img with a usable src.
func (r *Resolver) currentImage(ctx context.Context) (Element, error) {
	labels, err := r.doc.FindByText(ctx, r.h.SwapLabel)
	if err != nil {
		return nil, fmt.Errorf("find swap label: %w", err)
	}
	for _, label := range labels {
		current := label
		for level := 0; level < r.h.ImageSearchDepth; level++ {
			if img := r.usableImage(ctx, current); img != nil {
				return img, nil
			}
			parent, err := current.Parent(ctx)
			if err != nil {
				break
			}
			current = parent
		}
	}
	return nil, fmt.Errorf("%w: current image", ErrNotFound)
}

func (r *Resolver) usableImage(ctx context.Context, scope Element) Element {
	imgs, err := scope.FindAll(ctx, "img")
	if err != nil {
		return nil
	}
	for _, img := range imgs {
		src, err := img.Attr(ctx, "src")
		if err != nil || src == "" {
			continue
		}
		for _, hint := range r.h.ImageSourceHints {
			if strings.Contains(src, hint) {
				return img
			}
		}
	}
	return nil
}

func (r *Resolver) firstDisplayed(ctx context.Context, selectors []string) (Element, error) {
	for _, sel := range selectors {
		els, err := r.doc.QueryAll(ctx, sel)
		if err != nil {
			logger.Debug("selector failed", "selector", sel, "error", err)
			continue
		}
		for _, el := range els {
			if ok, err := el.Displayed(ctx); err == nil && ok {
				return el, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(selectors, ", "))
}

// IsClickable applies the clickability heuristics to one element.
func (r *Resolver) IsClickable(ctx context.Context, el Element) bool {
	if tag, err := el.Tag(ctx); err == nil {
		for _, t := range r.h.ClickableTags {
			if tag == t {
				return true
			}
		}
	}
	if v, err := el.Attr(ctx, "onclick"); err == nil && v != "" {
		return true
	}
	if v, err := el.Style(ctx, "cursor"); err == nil && v == "pointer" {
		return true
	}
	if class, err := el.Attr(ctx, "class"); err == nil && class != "" {
		class = strings.ToLower(class)
		for _, hint := range r.h.ClickableClassHints {
			if strings.Contains(class, hint) {
				return true
			}
		}
	}
	return false
}

// ClickableAncestor returns el or the nearest clickable ancestor within the
// configured depth, falling back to el itself.
func (r *Resolver) ClickableAncestor(ctx context.Context, el Element) Element {
	current := el
	for level := 0; level < r.h.ClickableDepth; level++ {
		if r.IsClickable(ctx, current) {
			return current
		}
		parent, err := current.Parent(ctx)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				logger.Debug("parent lookup failed", "error", err)
			}
			break
		}
		current = parent
	}
	return el
}
