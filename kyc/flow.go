// Package kyc holds the navigation policy for onboarding and auth pages.
//
// A [Flow] is a fixed, ordered list of onboarding steps. The next step is a pure
// function of the user's verification flags, so evaluating the same path for the
// same user always yields the same answer and a redirect target never redirects
// again.
package kyc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/session"
)

// ErrInvalidFlow is returned by Validate.
var ErrInvalidFlow = errors.New("kyc: invalid flow")

// Step is one onboarding page.
type Step struct {
	Path string
	Done func(*session.User) bool
}

// Flow is the onboarding and auth navigation policy.
type Flow struct {
	Steps []Step
	// Prefix, when set, marks every path below it as an onboarding page.
	Prefix    string
	Landing   string
	Login     string
	AuthPages []string
}

// DefaultFlow returns profile completion then ID verification, landing on /chat.
func DefaultFlow() *Flow {
	return &Flow{
		Steps: []Step{
			{Path: "/kyc/profile", Done: func(u *session.User) bool { return u.ProfileComplete }},
			{Path: "/kyc/verify-id", Done: func(u *session.User) bool { return u.IDVerified }},
		},
		Prefix:    "/kyc",
		Landing:   "/chat",
		Login:     "/login",
		AuthPages: []string{"/login", "/register"},
	}
}

// Validate checks that every path is absolute and every step has a predicate.
func (f *Flow) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil flow", ErrInvalidFlow)
	}
	if !strings.HasPrefix(f.Landing, "/") || !strings.HasPrefix(f.Login, "/") {
		return fmt.Errorf("%w: landing and login must be absolute paths", ErrInvalidFlow)
	}
	seen := make(map[string]bool, len(f.Steps))
	for i, s := range f.Steps {
		if !strings.HasPrefix(s.Path, "/") {
			return fmt.Errorf("%w: step %d path %q", ErrInvalidFlow, i, s.Path)
		}
		if s.Done == nil {
			return fmt.Errorf("%w: step %d has no predicate", ErrInvalidFlow, i)
		}
		if seen[s.Path] {
			return fmt.Errorf("%w: duplicate step %q", ErrInvalidFlow, s.Path)
		}
		seen[s.Path] = true
	}
	if f.IsOnboarding(f.Landing) {
		return fmt.Errorf("%w: landing %q is an onboarding page", ErrInvalidFlow, f.Landing)
	}
	return nil
}

// NextStep returns the first step u has not completed. It reports false when
// every step is done or u is nil.
func (f *Flow) NextStep(u *session.User) (Step, bool) {
	if u == nil {
		return Step{}, false
	}
	for _, s := range f.Steps {
		if !s.Done(u) {
			return s, true
		}
	}
	return Step{}, false
}

// Complete reports whether u has finished onboarding.
func (f *Flow) Complete(u *session.User) bool {
	_, pending := f.NextStep(u)
	return u != nil && !pending
}

// Redirect returns where a visit to path should go instead, if anywhere. A nil
// user is signed out.
func (f *Flow) Redirect(path string, u *session.User) (string, bool) {
	path = normalize(path)

	if u == nil {
		if path == f.Landing || f.IsOnboarding(path) {
			return f.Login, true
		}
		return "", false
	}

	next, pending := f.NextStep(u)

	switch {
	case f.IsAuthPage(path):
		if pending {
			return next.Path, true
		}
		return f.Landing, true
	case path == f.Landing:
		if pending {
			return next.Path, true
		}
	case f.IsOnboarding(path):
		if !pending {
			return f.Landing, true
		}
		if path != next.Path {
			return next.Path, true
		}
	}

	return "", false
}

// IsOnboarding reports whether path is a step page or lies below Prefix.
func (f *Flow) IsOnboarding(path string) bool {
	path = normalize(path)
	if f.Prefix != "" && under(path, f.Prefix) {
		return true
	}
	for _, s := range f.Steps {
		if path == s.Path {
			return true
		}
	}
	return false
}

// IsAuthPage reports whether path is a login or registration page.
func (f *Flow) IsAuthPage(path string) bool {
	path = normalize(path)
	for _, p := range f.AuthPages {
		if under(path, p) {
			return true
		}
	}
	return false
}

func normalize(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
