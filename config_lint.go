package goSession

import (
	"fmt"
	"time"
)

// LintWarning is a non-fatal configuration finding.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but likely unintended in production.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if c.Development {
		add("insecure_cookies", "session cookies are written without the Secure flag")
	}
	if c.Expiry.Margin == 0 {
		add("expiry_margin_zero", "access tokens may expire while a request is in flight")
	}
	if c.Expiry.Margin > c.Cookies.AccessMaxAge/2 {
		add("expiry_margin_large", "expiry margin %s is more than half the access cookie lifetime", c.Expiry.Margin)
	}
	if c.Refresh.Timeout > 30*time.Second {
		add("refresh_timeout_long", "refresh timeout %s holds page requests for a long time", c.Refresh.Timeout)
	}
	if !c.Refresh.Coalesce {
		add("refresh_not_coalesced", "concurrent requests with the same refresh token will each rotate it")
	}
	if !c.Throttle.Enabled {
		add("refresh_throttle_disabled", "refresh attempts per token are not capped")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "refresh failures and redirects are not audited")
	}
	if c.Cookies.RefreshMaxAge < c.Cookies.AccessMaxAge {
		add("refresh_shorter_than_access", "refresh cookie expires before the access cookie")
	}

	return ws
}
