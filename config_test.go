package goSession

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "login path relative",
			mutate:    func(c *Config) { c.Routes.LoginPath = "login" },
			wantValid: false,
		},
		{
			name:      "no protected prefixes",
			mutate:    func(c *Config) { c.Routes.ProtectedPrefixes = nil },
			wantValid: false,
		},
		{
			name:      "root protected prefix",
			mutate:    func(c *Config) { c.Routes.ProtectedPrefixes = []string{"/"} },
			wantValid: false,
		},
		{
			name: "login under protected prefix without bypass",
			mutate: func(c *Config) {
				c.Routes.LoginPath = "/chat/login"
			},
			wantValid: false,
		},
		{
			name: "login under protected prefix with bypass",
			mutate: func(c *Config) {
				c.Routes.LoginPath = "/chat/login"
				c.Routes.BypassPrefixes = append(c.Routes.BypassPrefixes, "/chat/login")
			},
			wantValid: true,
		},
		{
			name:      "same cookie names",
			mutate:    func(c *Config) { c.Cookies.RefreshName = c.Cookies.AccessName },
			wantValid: false,
		},
		{
			name:      "zero access max age",
			mutate:    func(c *Config) { c.Cookies.AccessMaxAge = 0 },
			wantValid: false,
		},
		{
			name: "samesite none in development",
			mutate: func(c *Config) {
				c.Development = true
				c.Cookies.SameSite = http.SameSiteNoneMode
			},
			wantValid: false,
		},
		{
			name:      "negative margin",
			mutate:    func(c *Config) { c.Expiry.Margin = -time.Second },
			wantValid: false,
		},
		{
			name:      "margin longer than cookie",
			mutate:    func(c *Config) { c.Expiry.Margin = 48 * time.Hour },
			wantValid: false,
		},
		{
			name:      "zero refresh timeout",
			mutate:    func(c *Config) { c.Refresh.Timeout = 0 },
			wantValid: false,
		},
		{
			name:      "coalesce without grace",
			mutate:    func(c *Config) { c.Refresh.Grace = 0 },
			wantValid: false,
		},
		{
			name: "no grace needed without coalescing",
			mutate: func(c *Config) {
				c.Refresh.Coalesce = false
				c.Refresh.Grace = 0
			},
			wantValid: true,
		},
		{
			name: "throttle without attempts",
			mutate: func(c *Config) {
				c.Throttle.Enabled = true
				c.Throttle.MaxAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "users without ttl",
			mutate: func(c *Config) {
				c.Users.Enabled = true
				c.Users.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestMatchesPrefix(t *testing.T) {
	cases := []struct {
		path, prefix string
		want         bool
	}{
		{"/chat", "/chat", true},
		{"/chat/", "/chat", true},
		{"/chat/42", "/chat", true},
		{"/chatter", "/chat", false},
		{"/favicon.ico", "/favicon.ico", true},
		{"/_next/static/a.js", "/_next", true},
		{"/api", "/api/", false},
		{"/api/x", "/api/", true},
		{"/", "/chat", false},
	}
	for _, c := range cases {
		if got := matchesPrefix(c.path, c.prefix); got != c.want {
			t.Errorf("matchesPrefix(%q, %q) = %v, want %v", c.path, c.prefix, got, c.want)
		}
	}
}

func TestBuilderErrors(t *testing.T) {
	if _, err := New().Build(); !errors.Is(err, ErrRefresherRequired) {
		t.Fatalf("expected ErrRefresherRequired, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.Throttle.Enabled = true
	if _, err := New().WithConfig(cfg).WithRefresher(&fakeRefresher{}).Build(); !errors.Is(err, ErrRedisRequired) {
		t.Fatalf("expected ErrRedisRequired for throttle, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Users.Enabled = true
	if _, err := New().WithConfig(cfg).WithRefresher(&fakeRefresher{}).Build(); !errors.Is(err, ErrRedisRequired) {
		t.Fatalf("expected ErrRedisRequired for users, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Routes.LoginPath = ""
	if _, err := New().WithConfig(cfg).WithRefresher(&fakeRefresher{}).Build(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	b := New().WithRefresher(&fakeRefresher{})
	g, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer g.Close()
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuildConfigImmutableAgainstExternalMutation(t *testing.T) {
	cfg := DefaultConfig()
	b := New().WithConfig(cfg).WithRefresher(&fakeRefresher{})
	cfg.Routes.ProtectedPrefixes[0] = "/elsewhere"

	g, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer g.Close()

	if !g.IsProtected("/chat") {
		t.Fatal("gate must keep its own copy of the route table")
	}
}
