// Package config loads the sessiongate configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	goSession "github.com/MrEthical07/goSession"
)

// ErrInvalid wraps every validation failure returned by Load.
var ErrInvalid = errors.New("config: invalid")

// Config holds the gateway configuration.
type Config struct {
	// Addr is the listen address (e.g. :8080).
	Addr string `mapstructure:"SESSIONGATE_ADDR"`
	// UpstreamURL is the application the gateway proxies to.
	UpstreamURL string `mapstructure:"UPSTREAM_URL"`
	// RefreshEndpoint is the auth backend refresh URL.
	RefreshEndpoint string `mapstructure:"REFRESH_ENDPOINT"`
	RefreshAPIKey   string `mapstructure:"REFRESH_API_KEY"`
	// RefreshTimeout bounds one refresh call (e.g. "15s").
	RefreshTimeout string `mapstructure:"REFRESH_TIMEOUT"`
	// RedisAddr enables the refresh throttle and the user cache when set.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// Env is the application environment. "development" relaxes cookie security.
	Env         string `mapstructure:"APP_ENV"`
	LoginPath   string `mapstructure:"LOGIN_PATH"`
	LandingPath string `mapstructure:"LANDING_PATH"`
	// ProtectedPrefixes and BypassPrefixes are comma-separated path prefixes.
	ProtectedPrefixes string `mapstructure:"PROTECTED_PREFIXES"`
	BypassPrefixes    string `mapstructure:"BYPASS_PREFIXES"`
	MetricsEnabled    bool   `mapstructure:"METRICS_ENABLED"`
	AuditEnabled      bool   `mapstructure:"AUDIT_ENABLED"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	def := goSession.DefaultConfig()
	v.SetDefault("SESSIONGATE_ADDR", ":8080")
	v.SetDefault("UPSTREAM_URL", "")
	v.SetDefault("REFRESH_ENDPOINT", "")
	v.SetDefault("REFRESH_API_KEY", "")
	v.SetDefault("REFRESH_TIMEOUT", def.Refresh.Timeout.String())
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOGIN_PATH", def.Routes.LoginPath)
	v.SetDefault("LANDING_PATH", "/chat")
	v.SetDefault("PROTECTED_PREFIXES", strings.Join(def.Routes.ProtectedPrefixes, ","))
	v.SetDefault("BYPASS_PREFIXES", strings.Join(def.Routes.BypassPrefixes, ","))
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("AUDIT_ENABLED", false)
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return errors.New("SESSIONGATE_ADDR must be set")
	}
	if err := absoluteURL(c.UpstreamURL); err != nil {
		return fmt.Errorf("UPSTREAM_URL: %v", err)
	}
	if err := absoluteURL(c.RefreshEndpoint); err != nil {
		return fmt.Errorf("REFRESH_ENDPOINT: %v", err)
	}
	if d, err := time.ParseDuration(c.RefreshTimeout); err != nil || d <= 0 {
		return fmt.Errorf("REFRESH_TIMEOUT %q is not a positive duration", c.RefreshTimeout)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %v", err)
	}
	if !strings.HasPrefix(c.LandingPath, "/") {
		return errors.New("LANDING_PATH must start with /")
	}
	return nil
}

func absoluteURL(raw string) error {
	if raw == "" {
		return errors.New("must be set")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) url", raw)
	}
	return nil
}

// Development reports whether APP_ENV is development.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Env, "development")
}

// Timeout parses RefreshTimeout. Load has already validated it.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RefreshTimeout)
	if err != nil || d <= 0 {
		return goSession.DefaultConfig().Refresh.Timeout
	}
	return d
}

// Level returns the zerolog level for LogLevel, defaulting to info.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Gate derives the gate configuration. Redis-backed features follow RedisAddr.
func (c *Config) Gate() goSession.Config {
	g := goSession.DefaultConfig()
	g.Development = c.Development()
	g.Routes.LoginPath = c.LoginPath
	g.Routes.ProtectedPrefixes = splitList(c.ProtectedPrefixes)
	g.Routes.BypassPrefixes = splitList(c.BypassPrefixes)
	g.Refresh.Timeout = c.Timeout()
	g.Throttle.Enabled = c.RedisAddr != ""
	g.Users.Enabled = c.RedisAddr != ""
	g.Metrics.Enabled = c.MetricsEnabled
	g.Audit.Enabled = c.AuditEnabled
	return g
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
