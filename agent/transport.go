package agent

import (
	"context"
	"errors"
	"io"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

// Capture installs a rotated pair found in response headers. It returns true
// when a pair was installed.
func (a *Agent) Capture(ctx context.Context, h http.Header) bool {
	pair := session.TokenPair{
		AccessToken:  h.Get(a.cfg.AccessHeader),
		RefreshToken: h.Get(a.cfg.RefreshHeader),
	}
	return a.capture(ctx, pair, nil)
}

func (a *Agent) capture(ctx context.Context, pair session.TokenPair, user *session.User) bool {
	if pair.AccessToken == "" {
		return false
	}
	if cur := a.store.Current(); cur.AccessToken == pair.AccessToken &&
		(pair.RefreshToken == "" || pair.RefreshToken == cur.RefreshToken) {
		return false
	}

	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	if _, err := a.installLocked(ctx, pair, user); err != nil {
		if !errors.Is(err, session.ErrStalePair) {
			a.log.Warn().Err(err).Msg("rotated pair not installed")
		}
		return false
	}
	a.metrics.Inc(goSession.MetricRotationCaptured)
	return true
}

// HTTPClient returns a client that routes through [Agent.Transport] and, when
// the jar exposes one, shares the jar's http.CookieJar.
func (a *Agent) HTTPClient() *http.Client {
	c := &http.Client{Transport: a.Transport(nil)}
	if j, ok := a.cfg.Jar.(interface{ CookieJar() http.CookieJar }); ok {
		c.Jar = j.CookieJar()
	}
	return c
}

// Transport wraps base so that requests carry the current bearer token and
// responses feed rotated tokens back into the agent. A 401 answer triggers at
// most one refresh and one replay of the request. A nil base uses
// http.DefaultTransport.
func (a *Agent) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{agent: a, base: base}
}

type transport struct {
	agent *Agent
	base  http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	a := t.agent
	ctx := req.Context()

	bearer := a.store.Bearer()
	resp, err := t.base.RoundTrip(withBearer(req, bearer))
	if err != nil {
		return nil, err
	}
	a.observe(ctx, resp)

	if resp.StatusCode != http.StatusUnauthorized || a.cfg.Refresher == nil || !replayable(req) {
		return resp, nil
	}

	// Another request may already have rotated the token.
	if next := a.store.Bearer(); next != "" && next != bearer {
		return t.replay(req, resp, next)
	}

	if !a.refreshOnce(ctx, bearer) {
		return resp, nil
	}
	return t.replay(req, resp, a.store.Bearer())
}

func (t *transport) replay(req *http.Request, prev *http.Response, bearer string) (*http.Response, error) {
	next := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return prev, nil
		}
		next.Body = body
	}

	drain(prev)
	t.agent.metrics.Inc(goSession.MetricUnauthorizedReplay)

	resp, err := t.base.RoundTrip(withBearer(next, bearer))
	if err != nil {
		return nil, err
	}
	t.agent.observe(req.Context(), resp)
	return resp, nil
}

// refreshOnce refreshes the session whose access token was rejected.
// Concurrent 401s for the same token share one refresh call, and a caller that
// arrives after the rotation reuses its result.
func (a *Agent) refreshOnce(ctx context.Context, rejected string) bool {
	v, _, _ := a.refreshGroup.Do(rejected, func() (any, error) {
		cur := a.store.Current()
		if cur.AccessToken != rejected {
			return cur.AccessToken != "", nil
		}
		rt := cur.RefreshToken
		if rt == "" {
			return false, nil
		}

		res, ok := a.cfg.Refresher.Refresh(context.WithoutCancel(ctx), rt)
		if !ok || res == nil {
			a.log.Info().Str("token_fp", refresh.Fingerprint(rt)).Msg("refresh after 401 failed")
			return false, nil
		}
		a.syncMu.Lock()
		defer a.syncMu.Unlock()
		if _, err := a.installLocked(ctx, res.Tokens, res.User); err != nil {
			return false, nil
		}
		return true, nil
	})
	ok, _ := v.(bool)
	return ok
}

func (a *Agent) observe(ctx context.Context, resp *http.Response) {
	a.Capture(ctx, resp.Header)

	a.imu.RLock()
	interceptors := append([]Interceptor(nil), a.interceptors...)
	a.imu.RUnlock()

	for _, i := range interceptors {
		if pair, ok := i(ctx, resp); ok {
			a.capture(ctx, pair, nil)
		}
	}
}

func withBearer(req *http.Request, bearer string) *http.Request {
	if bearer == "" || req.Header.Get("Authorization") != "" {
		return req
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+bearer)
	return out
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
