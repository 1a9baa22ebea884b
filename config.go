package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/refresh"
)

// Config controls a [Gate].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Routes   RouteConfig
	Cookies  CookieConfig
	Expiry   ExpiryConfig
	Refresh  RefreshConfig
	Throttle ThrottleConfig
	Users    UserCacheConfig
	Audit    AuditConfig
	Metrics  MetricsConfig

	// Development relaxes cookie security (no Secure flag) for plain-http local runs.
	Development bool
}

/*
====================================
ROUTE CONFIG
====================================
*/

// RouteConfig lists the path prefixes the gate inspects.
//
// A prefix matches the path itself and anything below it ("/chat" matches
// "/chat" and "/chat/42" but not "/chatter"). Bypass prefixes are checked first.
type RouteConfig struct {
	LoginPath         string
	ProtectedPrefixes []string
	BypassPrefixes    []string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the session cookies written after a refresh.
type CookieConfig struct {
	AccessName    string
	RefreshName   string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	Domain        string
	SameSite      http.SameSite
}

// ExpiryConfig controls when an access token is considered expired.
type ExpiryConfig struct {
	// Margin is subtracted from the token lifetime so a token never expires mid-request.
	Margin time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls how refresh calls are made.
type RefreshConfig struct {
	Timeout time.Duration
	// Coalesce shares one upstream call among concurrent refreshes of the same token.
	Coalesce     bool
	Grace        time.Duration
	CacheEntries int64
}

// ThrottleConfig caps refresh attempts per refresh token. Requires Redis.
type ThrottleConfig struct {
	Enabled     bool
	RedisPrefix string
	MaxAttempts int
	Window      time.Duration
}

// UserCacheConfig controls the Redis user cache used by onboarding gates.
type UserCacheConfig struct {
	Enabled     bool
	RedisPrefix string
	TTL         time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the standard gate configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Routes: RouteConfig{
			LoginPath: "/login",
			ProtectedPrefixes: []string{
				"/chat",
				"/calls",
				"/channels",
				"/wallet",
				"/contacts",
				"/settings",
				"/profile",
				"/kyc",
			},
			BypassPrefixes: []string{
				"/_next",
				"/static",
				"/assets",
				"/api",
				"/auth",
				"/login",
				"/register",
				"/favicon.ico",
			},
		},
		Cookies: CookieConfig{
			AccessName:    "access_token",
			RefreshName:   "refresh_token",
			AccessMaxAge:  cookie.DefaultAccessMaxAge,
			RefreshMaxAge: cookie.DefaultRefreshMaxAge,
			SameSite:      http.SameSiteLaxMode,
		},
		Expiry: ExpiryConfig{
			Margin: jwt.DefaultExpiryMargin,
		},
		Refresh: RefreshConfig{
			Timeout:      refresh.DefaultTimeout,
			Coalesce:     true,
			Grace:        refresh.DefaultGrace,
			CacheEntries: 10_000,
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			RedisPrefix: "sg",
			MaxAttempts: 10,
			Window:      time.Minute,
		},
		Users: UserCacheConfig{
			Enabled:     false,
			RedisPrefix: "sg",
			TTL:         24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Routes.ProtectedPrefixes = cloneStrings(cfg.Routes.ProtectedPrefixes)
	out.Routes.BypassPrefixes = cloneStrings(cfg.Routes.BypassPrefixes)
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// cookiePolicy derives the cookie policy for this configuration.
func (c *Config) cookiePolicy() cookie.Policy {
	p := cookie.DefaultPolicy(c.Development)
	p.AccessName = c.Cookies.AccessName
	p.RefreshName = c.Cookies.RefreshName
	p.AccessMaxAge = c.Cookies.AccessMaxAge
	p.RefreshMaxAge = c.Cookies.RefreshMaxAge
	p.Domain = c.Cookies.Domain
	if c.Cookies.SameSite != 0 {
		p.SameSite = c.Cookies.SameSite
	}
	return p
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// Routes
	if !strings.HasPrefix(c.Routes.LoginPath, "/") {
		return errors.New("Routes LoginPath must start with /")
	}
	if len(c.Routes.ProtectedPrefixes) == 0 {
		return errors.New("Routes ProtectedPrefixes must not be empty")
	}
	for _, p := range c.Routes.ProtectedPrefixes {
		if !validPrefix(p) {
			return fmt.Errorf("Routes ProtectedPrefixes entry %q must start with / and not be /", p)
		}
	}
	for _, p := range c.Routes.BypassPrefixes {
		if !validPrefix(p) {
			return fmt.Errorf("Routes BypassPrefixes entry %q must start with / and not be /", p)
		}
	}
	if matchesAny(c.Routes.LoginPath, c.Routes.ProtectedPrefixes) &&
		!matchesAny(c.Routes.LoginPath, c.Routes.BypassPrefixes) {
		return errors.New("Routes LoginPath must not be protected")
	}

	// Cookies
	if c.Cookies.AccessName == "" || c.Cookies.RefreshName == "" {
		return errors.New("Cookies names must not be empty")
	}
	if c.Cookies.AccessName == c.Cookies.RefreshName {
		return errors.New("Cookies AccessName and RefreshName must differ")
	}
	if c.Cookies.AccessMaxAge <= 0 || c.Cookies.RefreshMaxAge <= 0 {
		return errors.New("Cookies max ages must be > 0")
	}
	if c.Cookies.SameSite == http.SameSiteNoneMode && c.Development {
		return errors.New("Cookies SameSite=None requires Secure cookies")
	}

	// Expiry
	if c.Expiry.Margin < 0 {
		return errors.New("Expiry Margin must be >= 0")
	}
	if c.Expiry.Margin >= c.Cookies.AccessMaxAge {
		return errors.New("Expiry Margin must be shorter than Cookies AccessMaxAge")
	}

	// Refresh
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.Coalesce && c.Refresh.Grace <= 0 {
		return errors.New("Refresh Grace must be > 0 when Coalesce is true")
	}
	if c.Refresh.Coalesce && c.Refresh.CacheEntries <= 0 {
		return errors.New("Refresh CacheEntries must be > 0 when Coalesce is true")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("Throttle MaxAttempts must be > 0")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
		if c.Throttle.RedisPrefix == "" {
			return errors.New("Throttle RedisPrefix must not be empty")
		}
	}

	// Users
	if c.Users.Enabled {
		if c.Users.TTL <= 0 {
			return errors.New("Users TTL must be > 0")
		}
		if c.Users.RedisPrefix == "" {
			return errors.New("Users RedisPrefix must not be empty")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

func validPrefix(p string) bool {
	return strings.HasPrefix(p, "/") && p != "/"
}
