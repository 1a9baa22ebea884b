package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/session"
)

func TestDefaultPolicyCookies(t *testing.T) {
	p := DefaultPolicy(false)

	access := p.Access("a1")
	assert.Equal(t, "access_token", access.Name)
	assert.Equal(t, 86400, access.MaxAge)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.True(t, access.Secure)
	assert.False(t, access.HttpOnly)

	refresh := p.Refresh("r1")
	assert.Equal(t, "refresh_token", refresh.Name)
	assert.Equal(t, 604800, refresh.MaxAge)

	assert.False(t, DefaultPolicy(true).Access("a").Secure)
}

func TestPairSkipsEmpty(t *testing.T) {
	p := DefaultPolicy(true)
	cookies := p.Pair(session.TokenPair{RefreshToken: "r1"})
	require.Len(t, cookies, 1)
	assert.Equal(t, "refresh_token", cookies[0].Name)
}

func TestReadAndMirror(t *testing.T) {
	p := DefaultPolicy(true)
	r := httptest.NewRequest(http.MethodGet, "/chat", nil)
	r.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
	r.AddCookie(&http.Cookie{Name: "access_token", Value: "old"})

	assert.Equal(t, session.TokenPair{AccessToken: "old"}, p.Read(r))

	p.Mirror(r, session.TokenPair{AccessToken: "a2", RefreshToken: "r2"})
	assert.Equal(t, session.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, p.Read(r))

	theme, err := r.Cookie("theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme.Value)
	assert.Len(t, r.Cookies(), 3)
}

func TestExpireCookie(t *testing.T) {
	c := DefaultPolicy(true).Expire("access_token")
	assert.Equal(t, -1, c.MaxAge)
	assert.Empty(t, c.Value)
}
