package devauth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrUnknownSession is returned for a refresh token with no live session.
	ErrUnknownSession = errors.New("devauth: unknown session")
	// ErrReuse is returned when an already rotated refresh token is presented.
	ErrReuse = errors.New("devauth: refresh token reuse")
	// ErrUnknownUser is returned when logging in a user that was never added.
	ErrUnknownUser = errors.New("devauth: unknown user")
)

// Config configures a [Server].
type Config struct {
	// Secret signs access tokens with HS256.
	Secret []byte
	// APIKey, when set, is required in the x-api-key header of refresh calls.
	APIKey     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Logger     zerolog.Logger
}

type grant struct {
	userID  string
	hash    [32]byte
	expires time.Time
}

// Server is an in-memory auth backend.
type Server struct {
	tokens     *jwt.Manager
	apiKey     string
	refreshTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[sessionID]*grant
	users    map[string]*session.User
}

// New returns a server with no users.
func New(cfg Config) (*Server, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.AccessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.Secret,
		Issuer:        "devauth",
	})
	if err != nil {
		return nil, err
	}
	return &Server{
		tokens:     m,
		apiKey:     cfg.APIKey,
		refreshTTL: cfg.RefreshTTL,
		log:        cfg.Logger.With().Str("component", "devauth").Logger(),
		now:        time.Now,
		sessions:   make(map[sessionID]*grant),
		users:      make(map[string]*session.User),
	}, nil
}

// PutUser adds or replaces a user profile.
func (s *Server) PutUser(u *session.User) {
	if u == nil || u.ID == "" {
		return
	}
	s.mu.Lock()
	s.users[u.ID] = u.Clone()
	s.mu.Unlock()
}

// Login opens a session for userID and returns its first pair.
func (s *Server) Login(userID string) (session.TokenPair, *session.User, error) {
	s.mu.Lock()
	u, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return session.TokenPair{}, nil, ErrUnknownUser
	}

	sid, err := newSessionID()
	if err != nil {
		return session.TokenPair{}, nil, err
	}
	pair, err := s.issue(sid, userID)
	if err != nil {
		return session.TokenPair{}, nil, err
	}
	return pair, u.Clone(), nil
}

// Refresh rotates refreshToken. Presenting a token that was already rotated
// revokes the whole session.
func (s *Server) Refresh(refreshToken string) (*refresh.Result, error) {
	sid, secret, err := decodeRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	g, ok := s.sessions[sid]
	if !ok || !s.now().Before(g.expires) {
		delete(s.sessions, sid)
		s.mu.Unlock()
		return nil, ErrUnknownSession
	}
	provided := hashRefreshSecret(secret)
	if subtle.ConstantTimeCompare(provided[:], g.hash[:]) != 1 {
		delete(s.sessions, sid)
		s.mu.Unlock()
		s.log.Warn().Str("token_fp", refresh.Fingerprint(refreshToken)).Msg("refresh token reuse, session revoked")
		return nil, ErrReuse
	}
	userID := g.userID
	u := s.users[userID].Clone()
	s.mu.Unlock()

	pair, err := s.issue(sid, userID)
	if err != nil {
		return nil, err
	}
	return &refresh.Result{Tokens: pair, User: u}, nil
}

// Revoke ends the session refreshToken belongs to.
func (s *Server) Revoke(refreshToken string) {
	sid, _, err := decodeRefreshToken(refreshToken)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) issue(sid sessionID, userID string) (session.TokenPair, error) {
	secret, err := newRefreshSecret()
	if err != nil {
		return session.TokenPair{}, err
	}
	access, err := s.tokens.CreateAccess(userID, sid.String())
	if err != nil {
		return session.TokenPair{}, err
	}

	s.mu.Lock()
	s.sessions[sid] = &grant{
		userID:  userID,
		hash:    hashRefreshSecret(secret),
		expires: s.now().Add(s.refreshTTL),
	}
	s.mu.Unlock()

	return session.TokenPair{AccessToken: access, RefreshToken: encodeRefreshToken(sid, secret)}, nil
}

/*
====================================
HTTP
====================================
*/

// Handler serves the login, refresh and user endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/login", s.handleLogin)
	r.Post("/refresh", s.handleRefresh)
	r.Patch("/users/{id}", s.handlePatchUser)
	return r
}

type loginRequest struct {
	UserID string `json:"user_id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Source       string `json:"source"`
	UserType     string `json:"user_type"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	pair, u, err := s.Login(req.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	w.Header().Set("x-access-token", pair.AccessToken)
	w.Header().Set("x-refresh-token", pair.RefreshToken)
	writeJSON(w, http.StatusOK, refresh.Result{Tokens: pair, User: u})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.apiKey != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(refresh.APIKeyHeader)), []byte(s.apiKey)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	res, err := s.Refresh(req.RefreshToken)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	next := u.Clone()
	if err := json.NewDecoder(r.Body).Decode(next); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	next.ID = id
	s.users[id] = next
	writeJSON(w, http.StatusOK, next)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
