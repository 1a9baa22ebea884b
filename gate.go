package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

// Gate decides, per request, whether the session on the request is usable,
// refreshes it when it is about to expire, and otherwise sends the caller to
// login. A Gate is safe for concurrent use.
type Gate struct {
	config    Config
	policy    cookie.Policy
	refresher refresh.Refresher
	coalescer *refresh.Coalescer
	limiter   *rate.Limiter
	users     *session.UserCache
	audit     *audit.Dispatcher
	metrics   *Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// Evaluate runs the session state machine for one request. tokens are the
// values of the session cookies on the request. A refresh, when needed, is
// completed before Evaluate returns.
//
// Evaluate never returns an error: every failure ends in a redirect to login.
func (g *Gate) Evaluate(ctx context.Context, path string, tokens session.TokenPair) Decision {
	start := g.now()
	d := g.evaluate(ctx, path, tokens)
	g.metrics.Observe(MetricEvaluateLatency, g.now().Sub(start))

	g.log.Debug().
		Str("request_id", RequestIDFromContext(ctx)).
		Str("path", path).
		Stringer("outcome", d.Outcome).
		Stringer("reason", d.Reason).
		Msg("session gate")

	return d
}

func (g *Gate) evaluate(ctx context.Context, path string, tokens session.TokenPair) Decision {
	if g.IsBypassed(path) {
		g.metrics.Inc(MetricGuardBypass)
		return Decision{Outcome: OutcomeBypass, Tokens: tokens}
	}
	if !g.IsProtected(path) {
		g.metrics.Inc(MetricGuardUnprotected)
		return Decision{Outcome: OutcomeUnprotected, Tokens: tokens}
	}

	if tokens.Empty() {
		return g.redirect(ctx, path, ReasonNoTokens, "")
	}

	if tokens.AccessToken != "" && g.accessUsable(tokens.AccessToken) {
		g.metrics.Inc(MetricGuardServe)
		return Decision{Outcome: OutcomeServe, Tokens: tokens}
	}

	if tokens.RefreshToken == "" {
		return g.redirect(ctx, path, ReasonNoRefreshToken, "")
	}

	res, ok := g.refresh(ctx, path, tokens.RefreshToken)
	if !ok {
		return g.redirect(ctx, path, ReasonRefreshFailed, refresh.Fingerprint(tokens.RefreshToken))
	}

	g.rememberUser(ctx, res.User)
	g.metrics.Inc(MetricGuardRefreshed)

	return Decision{
		Outcome: OutcomeRefreshed,
		Cookies: g.policy.Pair(res.Tokens),
		Tokens:  res.Tokens,
		User:    res.User,
	}
}

// accessUsable reports whether the access token outlives the expiry margin.
func (g *Gate) accessUsable(token string) bool {
	claims, err := jwt.Decode(token)
	if err != nil {
		g.metrics.Inc(MetricDecodeFailure)
		return false
	}
	return claims.Expiry().After(g.now().Add(g.config.Expiry.Margin))
}

func (g *Gate) refresh(ctx context.Context, path, refreshToken string) (*refresh.Result, bool) {
	fp := refresh.Fingerprint(refreshToken)

	if err := g.limiter.Allow(ctx, fp); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			g.metrics.Inc(MetricRefreshThrottled)
			g.emit(ctx, AuditEvent{
				EventType: AuditRefreshThrottled,
				Path:      path,
				Token:     fp,
				Error:     err.Error(),
			})
			return nil, false
		}
		// The throttle is advisory; a Redis outage must not log everyone out.
		g.metrics.Inc(MetricThrottleUnavailable)
		g.log.Warn().Err(err).Str("token_fp", fp).Msg("refresh throttle unavailable")
	}

	start := g.now()
	res, ok := g.refresher.Refresh(ctx, refreshToken)
	g.metrics.Observe(MetricRefreshLatency, g.now().Sub(start))

	if !ok || res == nil || res.Tokens.AccessToken == "" {
		g.metrics.Inc(MetricRefreshFailure)
		g.emit(ctx, AuditEvent{
			EventType: AuditRefreshFailed,
			Path:      path,
			Token:     fp,
		})
		return nil, false
	}
	if g.coalescer == nil {
		g.metrics.Inc(MetricRefreshSuccess)
	}

	event := AuditEvent{
		EventType: AuditSessionRefreshed,
		Path:      path,
		Token:     fp,
		Success:   true,
	}
	if res.User != nil {
		event.UserID = res.User.ID
	} else if claims, err := jwt.Decode(res.Tokens.AccessToken); err == nil {
		event.UserID = claims.SubjectID()
	}
	g.emit(ctx, event)

	return res, true
}

func (g *Gate) redirect(ctx context.Context, path string, reason Reason, fp string) Decision {
	g.metrics.Inc(MetricGuardRedirect)
	switch reason {
	case ReasonNoTokens:
		g.metrics.Inc(MetricRedirectNoTokens)
	case ReasonNoRefreshToken:
		g.metrics.Inc(MetricRedirectNoRefreshToken)
	case ReasonRefreshFailed:
		g.metrics.Inc(MetricRedirectRefreshFailed)
	}

	g.emit(ctx, AuditEvent{
		EventType: AuditGuardRedirect,
		Path:      path,
		Token:     fp,
		Metadata:  map[string]string{"reason": reason.String()},
	})

	return Decision{
		Outcome:  OutcomeRedirect,
		Reason:   reason,
		Location: g.config.Routes.LoginPath,
	}
}

func (g *Gate) rememberUser(ctx context.Context, u *session.User) {
	if g.users == nil || u == nil || u.ID == "" {
		return
	}
	if err := g.users.Put(ctx, u); err != nil {
		g.metrics.Inc(MetricUserCacheFailure)
		g.log.Warn().Err(err).Str("user_id", u.ID).Msg("user cache write failed")
	}
}

// User returns the cached profile of the user the access token belongs to.
func (g *Gate) User(ctx context.Context, accessToken string) (*session.User, error) {
	if g.users == nil {
		return nil, ErrUserCacheDisabled
	}
	claims, err := jwt.Decode(accessToken)
	if err != nil {
		g.metrics.Inc(MetricDecodeFailure)
		return nil, err
	}
	id := claims.SubjectID()
	if id == "" {
		return nil, ErrNoSubject
	}
	u, err := g.users.Get(ctx, id)
	if err != nil && !errors.Is(err, session.ErrUserNotCached) {
		g.metrics.Inc(MetricUserCacheFailure)
	}
	return u, err
}

// RememberUser stores u in the user cache, when one is configured.
func (g *Gate) RememberUser(ctx context.Context, u *session.User) {
	g.rememberUser(ctx, u)
}

// ForgetUser drops the cached profile of the user the access token belongs
// to. It is a no-op without a user cache or when the token has no subject.
func (g *Gate) ForgetUser(ctx context.Context, accessToken string) {
	if g.users == nil {
		return
	}
	claims, err := jwt.Decode(accessToken)
	if err != nil || claims.SubjectID() == "" {
		return
	}
	if err := g.users.Delete(ctx, claims.SubjectID()); err != nil {
		g.metrics.Inc(MetricUserCacheFailure)
		g.log.Warn().Err(err).Str("user_id", claims.SubjectID()).Msg("user cache delete failed")
	}
}

// AccessUsable reports whether the access token decodes and outlives the
// configured expiry margin.
func (g *Gate) AccessUsable(accessToken string) bool {
	return accessToken != "" && g.accessUsable(accessToken)
}

func (g *Gate) emit(ctx context.Context, event AuditEvent) {
	if g.audit == nil {
		return
	}
	event.RequestID = RequestIDFromContext(ctx)
	event.IP = clientIPFromContext(ctx)
	g.audit.Emit(ctx, event)
}

func (g *Gate) observeRefreshSource(s refresh.Source) {
	switch s {
	case refresh.SourceUpstream:
		g.metrics.Inc(MetricRefreshSuccess)
	case refresh.SourceShared:
		g.metrics.Inc(MetricRefreshCoalesced)
	case refresh.SourceGrace:
		g.metrics.Inc(MetricRefreshGraceHit)
	}
}

// CookiePolicy returns the policy used to write session cookies.
func (g *Gate) CookiePolicy() cookie.Policy {
	return g.policy
}

// LoginPath returns the redirect target for unauthenticated requests.
func (g *Gate) LoginPath() string {
	return g.config.Routes.LoginPath
}

// Metrics exposes the gate metrics so other components can share them.
func (g *Gate) Metrics() *Metrics {
	return g.metrics
}

// MetricsSnapshot returns a copy of the gate metrics.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	return g.metrics.Snapshot()
}

// AuditDropped returns the number of audit events lost to backpressure.
func (g *Gate) AuditDropped() uint64 {
	return g.audit.Dropped()
}

// Close flushes audit events and releases the refresh grace cache.
func (g *Gate) Close() {
	g.audit.Close()
	if g.coalescer != nil {
		g.coalescer.Close()
	}
}
