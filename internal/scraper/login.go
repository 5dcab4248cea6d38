package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/iwsaver/internal/config"
	"github.com/jmylchreest/iwsaver/internal/dom"
	"github.com/jmylchreest/iwsaver/internal/logger"
)

// LoginWaits are the settle delays between login steps.
type LoginWaits struct {
	Settle       time.Duration // after landing on the site
	AfterPlay    time.Duration // for the login prompt to appear
	AfterConfirm time.Duration // for the login form to appear
	AfterSubmit  time.Duration // for the session to be established
}

// DefaultLoginWaits matches how long the site takes to animate each step.
var DefaultLoginWaits = LoginWaits{
	Settle:       8 * time.Second,
	AfterPlay:    5 * time.Second,
	AfterConfirm: 5 * time.Second,
	AfterSubmit:  8 * time.Second,
}

// Credentials for the automatic login.
type Credentials struct {
	Email    string
	Password string
}

// Configured reports whether the credentials are real rather than the
// placeholder written to fresh config files.
func (c Credentials) Configured() bool {
	return config.Scraper{Email: c.Email, Password: c.Password}.HasCredentials()
}

// Login drives the site's scripted login flow.
type Login struct {
	resolver *dom.Resolver
	sleep    Sleeper
	waits    LoginWaits
}

// NewLogin creates a login sequencer.
func NewLogin(resolver *dom.Resolver, sleep Sleeper, waits LoginWaits) *Login {
	if sleep == nil {
		sleep = Sleep
	}
	return &Login{resolver: resolver, sleep: sleep, waits: waits}
}

// Run performs the login. A missing "Play now" control is taken to mean
// the session is already logged in. Any other missing control or rejected
// interaction returns ErrLoginFailed naming the step.
func (l *Login) Run(ctx context.Context, creds Credentials) error {
	if !creds.Configured() {
		return ErrNotConfigured
	}

	logger.Info("attempting automatic login")
	if err := l.sleep(ctx, l.waits.Settle); err != nil {
		return err
	}

	play, err := l.resolver.Resolve(ctx, dom.RolePlayNow)
	if errors.Is(err, dom.ErrNotFound) {
		logger.Info("no play prompt found, assuming already logged in")
		return nil
	}
	if err != nil {
		return l.fail("find play prompt", err)
	}
	if err := dom.Click(ctx, play); err != nil {
		return l.fail("click play prompt", err)
	}
	if err := l.sleep(ctx, l.waits.AfterPlay); err != nil {
		return err
	}

	if err := l.clickRole(ctx, dom.RoleConfirmLogin, "confirm login"); err != nil {
		return err
	}
	if err := l.sleep(ctx, l.waits.AfterConfirm); err != nil {
		return err
	}

	if err := l.fill(ctx, dom.RoleEmailInput, "email", creds.Email); err != nil {
		return err
	}
	if err := l.fill(ctx, dom.RolePasswordInput, "password", creds.Password); err != nil {
		return err
	}

	if err := l.clickRole(ctx, dom.RoleLoginSubmit, "submit login"); err != nil {
		return err
	}
	if err := l.sleep(ctx, l.waits.AfterSubmit); err != nil {
		return err
	}

	logger.Info("login sequence completed")
	return nil
}

func (l *Login) clickRole(ctx context.Context, role dom.Role, step string) error {
	el, err := l.resolver.Resolve(ctx, role)
	if err != nil {
		return l.fail(step, err)
	}
	if err := dom.Click(ctx, el); err != nil {
		return l.fail(step, err)
	}
	return nil
}

func (l *Login) fill(ctx context.Context, role dom.Role, field, value string) error {
	el, err := l.resolver.Resolve(ctx, role)
	if err != nil {
		return l.fail("find "+field+" field", err)
	}
	if err := dom.Type(ctx, el, value); err != nil {
		return l.fail("fill "+field+" field", err)
	}
	return nil
}

func (l *Login) fail(step string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Warn("login step failed", "step", step, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrLoginFailed, step, err)
}
