package dom

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmylchreest/iwsaver/internal/logger"
)

type strategy struct {
	name string
	do   func(context.Context) error
}

// Click tries a native click, then a script click, then a synthetic pointer
// sequence. The first strategy that succeeds wins.
func Click(ctx context.Context, el Element) error {
	return attempt(ctx, "click", []strategy{
		{"native", el.NativeClick},
		{"script", el.ScriptClick},
		{"pointer", el.PointerClick},
	})
}

// Type enters text into an input, falling back from native key events to a
// script focus with key events, then to assigning the value directly.
func Type(ctx context.Context, el Element, text string) error {
	return attempt(ctx, "type", []strategy{
		{"native", func(ctx context.Context) error { return el.NativeType(ctx, text) }},
		{"script-focus", func(ctx context.Context) error { return el.ScriptFocusType(ctx, text) }},
		{"script-value", func(ctx context.Context) error { return el.ScriptSetValue(ctx, text) }},
	})
}

func attempt(ctx context.Context, action string, strategies []strategy) error {
	var errs []error
	for _, s := range strategies {
		err := s.do(ctx)
		if err == nil {
			if len(errs) > 0 {
				logger.Debug("interaction succeeded after fallback", "action", action, "strategy", s.name)
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Debug("interaction strategy failed", "action", action, "strategy", s.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return fmt.Errorf("%s: %w: %w", action, ErrInteractionFailed, errors.Join(errs...))
}
