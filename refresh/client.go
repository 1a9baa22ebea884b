package refresh

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goSession/session"
)

const (
	// DefaultTimeout bounds one refresh call.
	DefaultTimeout = 15 * time.Second
	// APIKeyHeader carries the client API key on refresh calls.
	APIKeyHeader = "x-api-key"

	maxResponseBytes = 1 << 20
)

var (
	// ErrInvalidEndpoint is returned by NewClient for a non-absolute endpoint URL.
	ErrInvalidEndpoint = errors.New("refresh: invalid endpoint")
)

// Result is the outcome of a successful refresh.
type Result struct {
	Tokens session.TokenPair `json:"tokens"`
	User   *session.User     `json:"user,omitempty"`
}

func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{Tokens: r.Tokens, User: r.User.Clone()}
}

// Refresher exchanges a refresh token for a new pair. It reports false on any
// failure; callers treat every failure the same way.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Result, bool)
}

// RefresherFunc adapts a function to [Refresher].
type RefresherFunc func(ctx context.Context, refreshToken string) (*Result, bool)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*Result, bool) {
	return f(ctx, refreshToken)
}

type requestBody struct {
	RefreshToken string `json:"refresh_token"`
	Source       string `json:"source"`
	UserType     string `json:"user_type"`
}

// Client calls the backend refresh endpoint.
type Client struct {
	endpoint string
	apiKey   string
	source   string
	userType string
	timeout  time.Duration
	http     *http.Client
	log      zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Its Timeout is overridden by
// the configured refresh timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.http = &clone
		}
	}
}

// WithTimeout sets the bound on one refresh call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithClientIdentity overrides the source and user_type fields sent upstream.
func WithClientIdentity(source, userType string) Option {
	return func(c *Client) {
		c.source = source
		c.userType = userType
	}
}

// NewClient returns a client for endpoint authenticating with apiKey.
func NewClient(endpoint, apiKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Client{
		endpoint: u.String(),
		apiKey:   apiKey,
		source:   "web",
		userType: "client",
		timeout:  DefaultTimeout,
		http:     &http.Client{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Timeout = c.timeout

	return c, nil
}

// Refresh performs one refresh call.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Result, bool) {
	if refreshToken == "" {
		return nil, false
	}
	log := c.log.With().Str("token_fp", Fingerprint(refreshToken)).Logger()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(requestBody{
		RefreshToken: refreshToken,
		Source:       c.source,
		UserType:     c.userType,
	})
	if err != nil {
		log.Error().Err(err).Msg("refresh request encode failed")
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Msg("refresh request build failed")
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("refresh call failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		log.Info().Int("status", resp.StatusCode).Msg("refresh rejected")
		return nil, false
	}

	var out Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		log.Warn().Err(err).Msg("refresh response undecodable")
		return nil, false
	}
	if out.Tokens.AccessToken == "" || out.Tokens.RefreshToken == "" {
		log.Warn().Msg("refresh response missing tokens")
		return nil, false
	}

	return &out, true
}

// Fingerprint returns a short, non-reversible identifier for a token, safe to log.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
