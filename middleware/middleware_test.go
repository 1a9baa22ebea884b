package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/kyc"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

func newSigner(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("middleware-test-secret-0123456789"),
	})
	require.NoError(t, err)
	return m
}

func mint(t *testing.T, m *jwt.Manager, uid string, ttl time.Duration) string {
	t.Helper()
	tok, err := m.CreateAccessWithTTL(uid, "", ttl)
	require.NoError(t, err)
	return tok
}

type gateFixture struct {
	gate   *goSession.Gate
	signer *jwt.Manager
	user   *session.User
	fail   bool
}

func newGateFixture(t *testing.T, withUsers bool) *gateFixture {
	t.Helper()
	f := &gateFixture{signer: newSigner(t), user: &session.User{ID: "u-1"}}

	cfg := goSession.DefaultConfig()
	cfg.Development = true
	b := goSession.New().WithRefresher(refresh.RefresherFunc(func(_ context.Context, token string) (*refresh.Result, bool) {
		if f.fail {
			return nil, false
		}
		return &refresh.Result{
			Tokens: session.TokenPair{AccessToken: mint(t, f.signer, "u-1", time.Hour), RefreshToken: token + "-next"},
			User:   f.user.Clone(),
		}, true
	}))

	if withUsers {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		cfg.Users.Enabled = true
		b = b.WithRedis(rdb)
	}

	g, err := b.WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(g.Close)
	f.gate = g
	return f
}

func serve(h http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuardRedirectsWithoutSession(t *testing.T) {
	f := newGateFixture(t, false)
	called := false
	h := Guard(f.gate)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := serve(h, "/chat")
	assert.False(t, called)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestGuardRedirectOnRefreshFailureSetsNoCookies(t *testing.T) {
	f := newGateFixture(t, false)
	f.fail = true
	h := Guard(f.gate)(http.NotFoundHandler())

	rec := serve(h, "/wallet", &http.Cookie{Name: "refresh_token", Value: "r1"})
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestGuardServesValidSession(t *testing.T) {
	f := newGateFixture(t, false)
	access := mint(t, f.signer, "u-1", time.Hour)

	var got goSession.Decision
	h := Guard(f.gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = DecisionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := serve(h, "/chat", &http.Cookie{Name: "access_token", Value: access})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, goSession.OutcomeServe, got.Outcome)
	assert.Empty(t, rec.Result().Cookies())
}

func TestGuardRefreshWritesAndMirrorsCookies(t *testing.T) {
	f := newGateFixture(t, false)
	stale := mint(t, f.signer, "u-1", time.Minute)

	var seenAccess, seenRefresh string
	h := Guard(f.gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("access_token"); err == nil {
			seenAccess = c.Value
		}
		if c, err := r.Cookie("refresh_token"); err == nil {
			seenRefresh = c.Value
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := serve(h, "/chat/42",
		&http.Cookie{Name: "access_token", Value: stale},
		&http.Cookie{Name: "refresh_token", Value: "r1"},
	)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	assert.Equal(t, "r1-next", byName["refresh_token"].Value)
	assert.NotEqual(t, stale, byName["access_token"].Value)
	assert.Equal(t, 86400, byName["access_token"].MaxAge)
	assert.Equal(t, 604800, byName["refresh_token"].MaxAge)

	assert.Equal(t, byName["access_token"].Value, seenAccess)
	assert.Equal(t, "r1-next", seenRefresh)
}

func TestGuardBypassesPublicPaths(t *testing.T) {
	f := newGateFixture(t, false)
	h := Guard(f.gate)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	for _, p := range []string{"/login", "/api/auth/refresh", "/_next/data.json", "/"} {
		rec := serve(h, p)
		assert.Equal(t, http.StatusNoContent, rec.Code, p)
	}
}

func TestRequestIDAssignsAndEchoes(t *testing.T) {
	var ctxID string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctxID = goSession.RequestIDFromContext(r.Context())
	}))

	rec := serve(h, "/chat")
	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, ctxID)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "upstream-id", ctxID)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}

func TestOnboardingAfterRefresh(t *testing.T) {
	f := newGateFixture(t, true)
	flow := kyc.DefaultFlow()
	h := Guard(f.gate)(Onboarding(f.gate, flow)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := serve(h, "/chat", &http.Cookie{Name: "refresh_token", Value: "r1"})
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/kyc/profile", rec.Header().Get("Location"))
	// The refreshed cookies still reach the browser with the onboarding redirect.
	assert.Len(t, rec.Result().Cookies(), 2)
}

func TestOnboardingUsesCachedUser(t *testing.T) {
	f := newGateFixture(t, true)
	flow := kyc.DefaultFlow()
	h := Guard(f.gate)(Onboarding(f.gate, flow)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	access := &http.Cookie{Name: "access_token", Value: mint(t, f.signer, "u-1", time.Hour)}

	// Unknown user: pass through.
	rec := serve(h, "/chat", access)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.gate.RememberUser(context.Background(), &session.User{ID: "u-1", ProfileComplete: true})
	rec = serve(h, "/chat", access)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/kyc/verify-id", rec.Header().Get("Location"))

	rec = serve(h, "/kyc/verify-id", access)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, "/login", access)
	assert.Equal(t, "/kyc/verify-id", rec.Header().Get("Location"))

	assert.Equal(t, uint64(2), f.gate.Metrics().Value(goSession.MetricOnboardingRedirect))
}

func TestOnboardingIgnoresNonNavigation(t *testing.T) {
	f := newGateFixture(t, true)
	f.gate.RememberUser(context.Background(), &session.User{ID: "u-1"})
	h := Onboarding(f.gate, kyc.DefaultFlow())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: mint(t, f.signer, "u-1", time.Hour)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestOnboardingLetsDeadSessionReachLogin(t *testing.T) {
	f := newGateFixture(t, true)
	f.fail = true
	f.gate.RememberUser(context.Background(), &session.User{ID: "u-1", ProfileComplete: true, IDVerified: true})
	h := Guard(f.gate)(Onboarding(f.gate, kyc.DefaultFlow())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	cookies := []*http.Cookie{
		{Name: "access_token", Value: mint(t, f.signer, "u-1", -time.Hour)},
		{Name: "refresh_token", Value: "dead"},
	}

	path := "/chat"
	for hop := 0; hop < 4; hop++ {
		rec := serve(h, path, cookies...)
		if rec.Code == http.StatusOK {
			assert.Equal(t, "/login", path)
			return
		}
		require.Equal(t, http.StatusTemporaryRedirect, rec.Code, "hop %d %s", hop, path)
		path = rec.Header().Get("Location")
	}
	t.Fatalf("redirect loop, last location %q", path)
}

func TestOnboardingTreatsExpiringAccessAsUnknown(t *testing.T) {
	f := newGateFixture(t, true)
	f.gate.RememberUser(context.Background(), &session.User{ID: "u-1"})
	h := Onboarding(f.gate, kyc.DefaultFlow())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := serve(h, "/register", &http.Cookie{Name: "access_token", Value: mint(t, f.signer, "u-1", 2*time.Minute)})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, "/register", &http.Cookie{Name: "access_token", Value: mint(t, f.signer, "u-1", time.Hour)})
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/kyc/profile", rec.Header().Get("Location"))
}

func TestCaptureUserRemembersSnapshotAndKeepsBody(t *testing.T) {
	f := newGateFixture(t, true)
	access := mint(t, f.signer, "u-1", time.Hour)
	hook := CaptureUser(f.gate)

	respond := func(method, contentType, body string) *http.Response {
		req := httptest.NewRequest(method, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: access})
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{contentType}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}
		require.NoError(t, hook(resp))
		return resp
	}

	body := `{"tokens":{"access_token":"a","refresh_token":"r"},"user":{"id":"u-1","is_profile_complete":true}}`
	resp := respond(http.MethodPost, "application/json; charset=utf-8", body)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	u, err := f.gate.User(context.Background(), access)
	require.NoError(t, err)
	assert.True(t, u.ProfileComplete)

	// Reads never touch the cache.
	respond(http.MethodGet, "text/plain", "hello")
	_, err = f.gate.User(context.Background(), access)
	require.NoError(t, err)

	respond(http.MethodPut, "text/plain", "done")
	_, err = f.gate.User(context.Background(), access)
	assert.ErrorIs(t, err, session.ErrUserNotCached)
}
