package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrInvalidURL is returned by NewJar for a URL without scheme or host.
	ErrInvalidURL = errors.New("cookie jar: invalid site url")
	// ErrRejected is returned when the jar refuses to store a cookie, for example
	// a Secure cookie for a plain http site.
	ErrRejected = errors.New("cookie jar: cookie rejected")
)

// Jar holds the session cookies of one site on the client side.
type Jar struct {
	jar    *cookiejar.Jar
	site   *url.URL
	policy Policy
}

// NewJar returns an empty jar for the site at rawURL.
func NewJar(rawURL string, policy Policy) (*Jar, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{jar: jar, site: u, policy: policy}, nil
}

// CookieJar exposes the underlying jar for use as http.Client.Jar.
func (j *Jar) CookieJar() http.CookieJar {
	return j.jar
}

// Site returns the URL the jar stores cookies for.
func (j *Jar) Site() *url.URL {
	return j.site
}

// Tokens returns the session tokens currently in the jar.
func (j *Jar) Tokens() session.TokenPair {
	return j.policy.ReadCookies(j.jar.Cookies(j.site))
}

// SetTokens writes the non-empty tokens of pair with the policy max-ages.
func (j *Jar) SetTokens(pair session.TokenPair) error {
	cookies := j.policy.Pair(pair)
	if len(cookies) == 0 {
		return nil
	}
	j.jar.SetCookies(j.site, cookies)

	got := j.Tokens()
	if pair.AccessToken != "" && got.AccessToken != pair.AccessToken {
		return fmt.Errorf("%w: %s", ErrRejected, j.policy.AccessName)
	}
	if pair.RefreshToken != "" && got.RefreshToken != pair.RefreshToken {
		return fmt.Errorf("%w: %s", ErrRejected, j.policy.RefreshName)
	}
	return nil
}

// Expire removes the named session cookies.
func (j *Jar) Expire(names ...string) {
	cookies := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, j.policy.Expire(name))
	}
	j.jar.SetCookies(j.site, cookies)
}

// Clear removes both session cookies.
func (j *Jar) Clear() {
	j.Expire(j.policy.AccessName, j.policy.RefreshName)
}
