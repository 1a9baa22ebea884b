package session

import (
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/jwt"
)

var (
	// ErrEmptyPair is returned when Replace is called without an access token.
	ErrEmptyPair = errors.New("token pair has no access token")
	// ErrStalePair is returned when Replace is offered a pair older than the current one.
	ErrStalePair = errors.New("token pair is older than the current session")
)

// Store is the in-memory token store. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	current Session
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Current returns a copy of the current session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.current
	out.User = s.current.User.Clone()
	return out
}

// Bearer returns the access token to attach to outgoing requests.
func (s *Store) Bearer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

// Replace installs pair as the current credentials. An empty refresh token keeps
// the current one. user, when non-nil, replaces the cached snapshot.
//
// Replacing with the pair that is already current is a no-op and does not bump
// the version.
func (s *Store) Replace(pair TokenPair, user *User) (Session, error) {
	if pair.AccessToken == "" {
		return Session{}, ErrEmptyPair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current
	if pair.RefreshToken == "" {
		pair.RefreshToken = cur.RefreshToken
	}

	if pair == cur.TokenPair {
		if user != nil {
			s.current.User = user.Clone()
		}
		return s.snapshotLocked(), nil
	}

	if cur.AccessToken != "" && pair.AccessToken != cur.AccessToken && jwt.Newer(cur.AccessToken, pair.AccessToken) {
		return s.snapshotLocked(), ErrStalePair
	}

	s.current.TokenPair = pair
	if user != nil {
		s.current.User = user.Clone()
	}
	s.current.Version++
	s.current.UpdatedAt = s.now()

	return s.snapshotLocked(), nil
}

// PatchUser applies fn to the cached user snapshot. It returns false when no
// user is cached.
func (s *Store) PatchUser(fn func(*User)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.User == nil || fn == nil {
		return false
	}
	next := s.current.User.Clone()
	fn(next)
	s.current.User = next
	s.current.UpdatedAt = s.now()
	return true
}

// Clear destroys the session. The version keeps increasing so observers can
// tell a cleared session apart from one that was never set.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.current.Version
	s.current = Session{Version: version + 1, UpdatedAt: s.now()}
}

func (s *Store) snapshotLocked() Session {
	out := s.current
	out.User = s.current.User.Clone()
	return out
}
