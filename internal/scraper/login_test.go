package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/iwsaver/internal/config"
	"github.com/jmylchreest/iwsaver/internal/dom"
)

var realCreds = Credentials{Email: "reader@example.org", Password: "hunter2"}

func newTestLogin(site *fakeSite) (*Login, *noSleep) {
	ns := &noSleep{}
	resolver := dom.NewResolver(site, dom.DefaultHeuristics())
	return NewLogin(resolver, ns.sleep, DefaultLoginWaits), ns
}

func TestCredentials_Configured(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"real", realCreds, true},
		{"placeholder email", Credentials{Email: config.PlaceholderEmail, Password: "hunter2"}, false},
		{"empty email", Credentials{Password: "hunter2"}, false},
		{"empty password", Credentials{Email: "reader@example.org"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogin_NotConfigured(t *testing.T) {
	site := &fakeSite{turns: []fakeTurn{{}}, showPlay: true}
	login, ns := newTestLogin(site)

	err := login.Run(context.Background(), Credentials{Email: config.PlaceholderEmail, Password: "password"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if ns.waits != 0 || site.submitted {
		t.Error("nothing should happen without credentials")
	}
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	site := &fakeSite{turns: []fakeTurn{{}}}
	login, _ := newTestLogin(site)

	if err := login.Run(context.Background(), realCreds); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if site.submitted {
		t.Error("form should not be submitted without a play prompt")
	}
}

func TestLogin_FullSequence(t *testing.T) {
	site := &fakeSite{turns: []fakeTurn{{}}, showPlay: true}
	login, ns := newTestLogin(site)

	if err := login.Run(context.Background(), realCreds); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if site.typed["email"] != realCreds.Email || site.typed["password"] != realCreds.Password {
		t.Errorf("typed = %v", site.typed)
	}
	if !site.submitted {
		t.Error("login form was not submitted")
	}
	if ns.waits != 4 {
		t.Errorf("waits = %d, want one per step", ns.waits)
	}
}

func TestLogin_MissingStepNamesIt(t *testing.T) {
	site := &fakeSite{turns: []fakeTurn{{}}, showPlay: true, brokenLogin: true}
	login, _ := newTestLogin(site)

	err := login.Run(context.Background(), realCreds)
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "confirm login") {
		t.Errorf("error should name the step: %v", err)
	}
}

func TestLogin_Cancelled(t *testing.T) {
	site := &fakeSite{turns: []fakeTurn{{}}, showPlay: true}
	login, _ := newTestLogin(site)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := login.Run(ctx, realCreds); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
