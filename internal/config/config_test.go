package config

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("UPSTREAM_URL", "http://localhost:3000")
	t.Setenv("REFRESH_ENDPOINT", "http://localhost:4000/api/v1/auth/refresh")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Timeout() != 15*time.Second {
		t.Errorf("Timeout = %s, want 15s", cfg.Timeout())
	}
	if cfg.Development() {
		t.Error("Development should default to false")
	}
	if !cfg.MetricsEnabled || cfg.AuditEnabled {
		t.Errorf("MetricsEnabled=%v AuditEnabled=%v, want true/false", cfg.MetricsEnabled, cfg.AuditEnabled)
	}
	if cfg.Level() != zerolog.InfoLevel {
		t.Errorf("Level = %s, want info", cfg.Level())
	}

	g := cfg.Gate()
	if err := g.Validate(); err != nil {
		t.Fatalf("derived gate config invalid: %v", err)
	}
	if g.Throttle.Enabled || g.Users.Enabled {
		t.Error("redis features must stay off without REDIS_ADDR")
	}
	if len(g.Routes.ProtectedPrefixes) == 0 || g.Routes.ProtectedPrefixes[0] != "/chat" {
		t.Errorf("ProtectedPrefixes = %v", g.Routes.ProtectedPrefixes)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSIONGATE_ADDR", ":9090")
	t.Setenv("APP_ENV", "development")
	t.Setenv("REFRESH_TIMEOUT", "3s")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PROTECTED_PREFIXES", " /app , /billing ,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.Level() != zerolog.DebugLevel {
		t.Errorf("Level = %s, want debug", cfg.Level())
	}

	g := cfg.Gate()
	if !g.Development || !g.Throttle.Enabled || !g.Users.Enabled {
		t.Errorf("gate config = %+v", g)
	}
	if g.Refresh.Timeout != 3*time.Second {
		t.Errorf("Refresh.Timeout = %s, want 3s", g.Refresh.Timeout)
	}
	if len(g.Routes.ProtectedPrefixes) != 2 || g.Routes.ProtectedPrefixes[1] != "/billing" {
		t.Errorf("ProtectedPrefixes = %v", g.Routes.ProtectedPrefixes)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing upstream": {"UPSTREAM_URL": ""},
		"relative refresh": {"REFRESH_ENDPOINT": "/api/refresh"},
		"bad timeout":      {"REFRESH_TIMEOUT": "soon"},
		"negative timeout": {"REFRESH_TIMEOUT": "-1s"},
		"bad log level":    {"LOG_LEVEL": "loud"},
		"relative landing": {"LANDING_PATH": "chat"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
