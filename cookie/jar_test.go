package cookie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/session"
)

func TestJarRoundTrip(t *testing.T) {
	jar, err := NewJar("http://app.example.com", DefaultPolicy(true))
	require.NoError(t, err)
	assert.True(t, jar.Tokens().Empty())

	pair := session.TokenPair{AccessToken: "a1", RefreshToken: "r1"}
	require.NoError(t, jar.SetTokens(pair))
	assert.Equal(t, pair, jar.Tokens())

	jar.Expire("access_token")
	assert.Equal(t, session.TokenPair{RefreshToken: "r1"}, jar.Tokens())

	jar.Clear()
	assert.True(t, jar.Tokens().Empty())
}

func TestJarRejectsSecureCookieOnPlainHTTP(t *testing.T) {
	jar, err := NewJar("http://app.example.com", DefaultPolicy(false))
	require.NoError(t, err)

	err = jar.SetTokens(session.TokenPair{AccessToken: "a1"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestJarInvalidURL(t *testing.T) {
	_, err := NewJar("not a url", DefaultPolicy(true))
	assert.ErrorIs(t, err, ErrInvalidURL)
}
