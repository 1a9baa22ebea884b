package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDropped is the counter name for audit events lost to backpressure.
const AuditDropped = "gosession_audit_dropped_total"

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricGuardBypass, Name: "gosession_guard_bypass_total", Help: "Requests on bypassed paths."},
	{ID: goSession.MetricGuardUnprotected, Name: "gosession_guard_unprotected_total", Help: "Requests outside protected prefixes."},
	{ID: goSession.MetricGuardServe, Name: "gosession_guard_serve_total", Help: "Protected requests served with the existing access token."},
	{ID: goSession.MetricGuardRefreshed, Name: "gosession_guard_refreshed_total", Help: "Protected requests served after a refresh."},
	{ID: goSession.MetricGuardRedirect, Name: "gosession_guard_redirect_total", Help: "Protected requests redirected to login."},
	{ID: goSession.MetricRedirectNoTokens, Name: "gosession_redirect_no_tokens_total", Help: "Redirects caused by a request without session cookies."},
	{ID: goSession.MetricRedirectNoRefreshToken, Name: "gosession_redirect_no_refresh_token_total", Help: "Redirects caused by an expired access token without refresh token."},
	{ID: goSession.MetricRedirectRefreshFailed, Name: "gosession_redirect_refresh_failed_total", Help: "Redirects caused by a failed refresh."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful upstream refresh calls."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: goSession.MetricRefreshCoalesced, Name: "gosession_refresh_coalesced_total", Help: "Refreshes that joined an in-flight call."},
	{ID: goSession.MetricRefreshGraceHit, Name: "gosession_refresh_grace_hit_total", Help: "Refreshes answered from the grace window."},
	{ID: goSession.MetricRefreshThrottled, Name: "gosession_refresh_throttled_total", Help: "Refresh attempts rejected by the throttle."},
	{ID: goSession.MetricThrottleUnavailable, Name: "gosession_throttle_unavailable_total", Help: "Refresh throttle checks skipped because Redis was unavailable."},
	{ID: goSession.MetricDecodeFailure, Name: "gosession_decode_failure_total", Help: "Access tokens that could not be decoded."},
	{ID: goSession.MetricUserCacheFailure, Name: "gosession_user_cache_failure_total", Help: "User cache reads or writes that failed."},
	{ID: goSession.MetricSyncPass, Name: "gosession_sync_pass_total", Help: "Client reconciliation passes."},
	{ID: goSession.MetricRotationCaptured, Name: "gosession_rotation_captured_total", Help: "Token pairs captured from responses."},
	{ID: goSession.MetricStorageWriteFailure, Name: "gosession_storage_write_failure_total", Help: "Failed writes to durable storage."},
	{ID: goSession.MetricJarWriteFailure, Name: "gosession_jar_write_failure_total", Help: "Failed writes to the cookie jar."},
	{ID: goSession.MetricUnauthorizedReplay, Name: "gosession_unauthorized_replay_total", Help: "Requests replayed after a 401-driven refresh."},
	{ID: goSession.MetricLogin, Name: "gosession_login_total", Help: "Sessions installed by login."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Sessions removed by logout."},
	{ID: goSession.MetricOnboardingRedirect, Name: "gosession_onboarding_redirect_total", Help: "Navigations redirected by the onboarding flow."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricEvaluateLatency, Name: "gosession_evaluate_latency_seconds", Help: "Session gate decision latency."},
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Upstream refresh latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket in metric names that cannot carry labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the eight snapshot buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
