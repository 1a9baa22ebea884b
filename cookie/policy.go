// Package cookie builds and reads the session cookies and keeps a client-side
// cookie jar for them.
package cookie

import (
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/session"
)

const (
	DefaultAccessMaxAge  = 24 * time.Hour
	DefaultRefreshMaxAge = 7 * 24 * time.Hour
)

// Policy describes how session cookies are written.
//
// Cookies are readable by scripts (not HttpOnly) because the client sync agent
// copies them to and from durable storage.
type Policy struct {
	AccessName    string
	RefreshName   string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	Path          string
	Domain        string
	SameSite      http.SameSite
	Secure        bool
}

// DefaultPolicy returns the standard policy. Cookies are Secure except in
// development.
func DefaultPolicy(development bool) Policy {
	return Policy{
		AccessName:    session.AccessTokenKey,
		RefreshName:   session.RefreshTokenKey,
		AccessMaxAge:  DefaultAccessMaxAge,
		RefreshMaxAge: DefaultRefreshMaxAge,
		Path:          "/",
		SameSite:      http.SameSiteLaxMode,
		Secure:        !development,
	}
}

func (p Policy) build(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     p.Path,
		Domain:   p.Domain,
		MaxAge:   int(maxAge / time.Second),
		SameSite: p.SameSite,
		Secure:   p.Secure,
	}
}

// Access returns the access token cookie.
func (p Policy) Access(value string) *http.Cookie {
	return p.build(p.AccessName, value, p.AccessMaxAge)
}

// Refresh returns the refresh token cookie.
func (p Policy) Refresh(value string) *http.Cookie {
	return p.build(p.RefreshName, value, p.RefreshMaxAge)
}

// Pair returns cookies for the non-empty tokens of pair.
func (p Policy) Pair(pair session.TokenPair) []*http.Cookie {
	out := make([]*http.Cookie, 0, 2)
	if pair.AccessToken != "" {
		out = append(out, p.Access(pair.AccessToken))
	}
	if pair.RefreshToken != "" {
		out = append(out, p.Refresh(pair.RefreshToken))
	}
	return out
}

// Expire returns a cookie that deletes name.
func (p Policy) Expire(name string) *http.Cookie {
	c := p.build(name, "", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// Read extracts the token pair from the request cookies.
func (p Policy) Read(r *http.Request) session.TokenPair {
	return p.ReadCookies(r.Cookies())
}

// ReadCookies extracts the token pair from cookies. Later duplicates win.
func (p Policy) ReadCookies(cookies []*http.Cookie) session.TokenPair {
	var pair session.TokenPair
	for _, c := range cookies {
		switch c.Name {
		case p.AccessName:
			pair.AccessToken = c.Value
		case p.RefreshName:
			pair.RefreshToken = c.Value
		}
	}
	return pair
}

// Mirror rewrites the Cookie header of r so that it carries pair in place of
// any previous session cookies. Unrelated cookies are kept.
func (p Policy) Mirror(r *http.Request, pair session.TokenPair) {
	kept := make([]*http.Cookie, 0, len(r.Cookies())+2)
	for _, c := range r.Cookies() {
		if c.Name == p.AccessName || c.Name == p.RefreshName {
			continue
		}
		kept = append(kept, c)
	}
	if pair.AccessToken != "" {
		kept = append(kept, &http.Cookie{Name: p.AccessName, Value: pair.AccessToken})
	}
	if pair.RefreshToken != "" {
		kept = append(kept, &http.Cookie{Name: p.RefreshName, Value: pair.RefreshToken})
	}

	r.Header.Del("Cookie")
	for _, c := range kept {
		r.AddCookie(c)
	}
}
