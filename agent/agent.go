package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/kyc"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

const (
	// DefaultStorageTTL is how long durable storage keeps a session.
	DefaultStorageTTL = 30 * 24 * time.Hour

	DefaultAccessHeader  = "x-access-token"
	DefaultRefreshHeader = "x-refresh-token"
)

var (
	// ErrStorageRequired is returned by New without a Storage.
	ErrStorageRequired = errors.New("agent: storage required")
	// ErrJarRequired is returned by New without a Jar.
	ErrJarRequired = errors.New("agent: cookie jar required")
)

// CookieJar is the client's cookie copy of the session. *cookie.Jar implements it.
type CookieJar interface {
	Tokens() session.TokenPair
	SetTokens(session.TokenPair) error
	Clear()
}

// Interceptor inspects a response and may return a rotated token pair.
type Interceptor func(ctx context.Context, resp *http.Response) (session.TokenPair, bool)

// Config configures an [Agent].
type Config struct {
	Storage storage.Storage
	Jar     CookieJar
	// Refresher, when set, is used once per 401 response to refresh and replay.
	Refresher refresh.Refresher
	// Flow, when set, is applied by Navigate.
	Flow    *kyc.Flow
	Metrics *goSession.Metrics
	Logger  zerolog.Logger
	// Origin identifies this agent in storage events. Defaults to a random UUID.
	Origin        string
	StorageTTL    time.Duration
	AccessHeader  string
	RefreshHeader string
}

// Agent is one client's session sync agent. It is safe for concurrent use.
type Agent struct {
	cfg     Config
	store   *session.Store
	origin  string
	log     zerolog.Logger
	metrics *goSession.Metrics

	// syncMu serializes reconciliation passes so copies are written in one order.
	syncMu sync.Mutex

	imu          sync.RWMutex
	interceptors []Interceptor

	refreshGroup singleflight.Group
	degraded     atomic.Bool
}

// New validates cfg and returns an agent with an empty in-memory store.
func New(cfg Config) (*Agent, error) {
	if cfg.Storage == nil {
		return nil, ErrStorageRequired
	}
	if cfg.Jar == nil {
		return nil, ErrJarRequired
	}
	if cfg.Origin == "" {
		cfg.Origin = uuid.NewString()
	}
	if cfg.StorageTTL <= 0 {
		cfg.StorageTTL = DefaultStorageTTL
	}
	if cfg.AccessHeader == "" {
		cfg.AccessHeader = DefaultAccessHeader
	}
	if cfg.RefreshHeader == "" {
		cfg.RefreshHeader = DefaultRefreshHeader
	}
	if cfg.Flow != nil {
		if err := cfg.Flow.Validate(); err != nil {
			return nil, err
		}
	}

	return &Agent{
		cfg:     cfg,
		store:   session.NewStore(),
		origin:  cfg.Origin,
		log:     cfg.Logger.With().Str("component", "agent").Str("origin", cfg.Origin).Logger(),
		metrics: cfg.Metrics,
	}, nil
}

// Origin returns the identifier this agent stamps on its storage writes.
func (a *Agent) Origin() string {
	return a.origin
}

// Session returns a copy of the in-memory session.
func (a *Agent) Session() session.Session {
	return a.store.Current()
}

// Store exposes the in-memory store.
func (a *Agent) Store() *session.Store {
	return a.store
}

// Degraded reports whether the last write to storage or the jar failed.
func (a *Agent) Degraded() bool {
	return a.degraded.Load()
}

// Intercept registers an additional response interceptor.
func (a *Agent) Intercept(i Interceptor) {
	if i == nil {
		return
	}
	a.imu.Lock()
	a.interceptors = append(a.interceptors, i)
	a.imu.Unlock()
}

// Login installs a freshly issued pair in every copy.
func (a *Agent) Login(ctx context.Context, pair session.TokenPair, user *session.User) error {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	if _, err := a.installLocked(ctx, pair, user); err != nil {
		return err
	}
	a.metrics.Inc(goSession.MetricLogin)
	return nil
}

// Logout removes the session from every copy. Other agents sharing the storage
// follow through [Agent.Run].
func (a *Agent) Logout(ctx context.Context) error {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	a.store.Clear()
	a.cfg.Jar.Clear()
	a.metrics.Inc(goSession.MetricLogout)

	err := a.cfg.Storage.Delete(a.originCtx(ctx), session.AccessTokenKey, session.RefreshTokenKey, session.UserKey)
	if err != nil {
		a.writeFailed("storage", err)
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// UpdateUser applies fn to the cached user and persists the result.
func (a *Agent) UpdateUser(ctx context.Context, fn func(*session.User)) bool {
	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	if !a.store.PatchUser(fn) {
		return false
	}
	a.persistUser(ctx, a.store.Current().User)
	return true
}

// Navigate applies the onboarding flow to path for the current user. A
// signed-in session without a known user is never redirected.
func (a *Agent) Navigate(path string) (string, bool) {
	if a.cfg.Flow == nil {
		return "", false
	}
	cur := a.store.Current()
	if !cur.Authenticated() {
		return a.cfg.Flow.Redirect(path, nil)
	}
	if cur.User == nil {
		return "", false
	}
	return a.cfg.Flow.Redirect(path, cur.User)
}

// installLocked puts pair into the store and mirrors the resulting session to
// storage and the jar. A pair older than the current one is rejected.
func (a *Agent) installLocked(ctx context.Context, pair session.TokenPair, user *session.User) (session.Session, error) {
	s, err := a.store.Replace(pair, user)
	if err != nil {
		return s, err
	}

	ok := a.writeStorage(ctx, s.TokenPair)
	if !a.writeJar(s.TokenPair) {
		ok = false
	}
	if user != nil {
		a.persistUser(ctx, s.User)
	}
	if ok {
		a.degraded.Store(false)
	}
	return s, nil
}

// writeStorage writes the refresh token before the access token so a reader
// that sees the new access token also sees its refresh token.
func (a *Agent) writeStorage(ctx context.Context, pair session.TokenPair) bool {
	ctx = a.originCtx(ctx)
	if pair.RefreshToken != "" {
		if err := a.cfg.Storage.Set(ctx, session.RefreshTokenKey, pair.RefreshToken, a.cfg.StorageTTL); err != nil {
			a.writeFailed("storage", err)
			return false
		}
	}
	if err := a.cfg.Storage.Set(ctx, session.AccessTokenKey, pair.AccessToken, a.cfg.StorageTTL); err != nil {
		a.writeFailed("storage", err)
		return false
	}
	return true
}

func (a *Agent) writeJar(pair session.TokenPair) bool {
	if err := a.cfg.Jar.SetTokens(pair); err != nil {
		a.writeFailed("jar", err)
		return false
	}
	return true
}

func (a *Agent) persistUser(ctx context.Context, u *session.User) {
	if u == nil {
		return
	}
	raw, err := json.Marshal(u)
	if err != nil {
		a.log.Error().Err(err).Msg("user encode failed")
		return
	}
	if err := a.cfg.Storage.Set(a.originCtx(ctx), session.UserKey, string(raw), a.cfg.StorageTTL); err != nil {
		a.writeFailed("storage", err)
	}
}

func (a *Agent) writeFailed(target string, err error) {
	a.degraded.Store(true)
	switch target {
	case "jar":
		a.metrics.Inc(goSession.MetricJarWriteFailure)
	default:
		a.metrics.Inc(goSession.MetricStorageWriteFailure)
	}
	a.log.Warn().Err(err).Str("target", target).Msg("session write failed, continuing degraded")
}

func (a *Agent) originCtx(ctx context.Context) context.Context {
	return storage.WithOrigin(ctx, a.origin)
}

// newest returns the candidate whose access token expires last. Ties keep the
// earlier candidate, so callers pass durable storage first. Missing refresh tokens are filled from the other candidates.
func newest(candidates ...session.TokenPair) session.TokenPair {
	var best session.TokenPair
	for _, c := range candidates {
		if c.Empty() {
			continue
		}
		if best.Empty() || (c.AccessToken != best.AccessToken && jwt.Newer(c.AccessToken, best.AccessToken)) {
			best = c
		}
	}
	if best.RefreshToken == "" {
		for _, c := range candidates {
			if c.RefreshToken != "" {
				best.RefreshToken = c.RefreshToken
				break
			}
		}
	}
	return best
}
