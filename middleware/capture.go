package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
)

// maxSnapshotBody caps how much of an upstream response is buffered while
// looking for a user snapshot.
const maxSnapshotBody = 1 << 20

// CaptureUser returns a response hook for [httputil.ReverseProxy.ModifyResponse]
// that keeps the gate's user cache in step with the upstream.
//
// After a successful non-GET request, a JSON body carrying a user (either
// {"user": {...}} or a bare user object with an id) replaces the cached
// snapshot. Without one, the caller's snapshot is dropped so the onboarding
// gate stops acting on profile data the request may have changed.
//
// [httputil.ReverseProxy.ModifyResponse]: https://pkg.go.dev/net/http/httputil#ReverseProxy
func CaptureUser(gate *goSession.Gate) func(*http.Response) error {
	return func(resp *http.Response) error {
		req := resp.Request
		if gate == nil || req == nil || req.Method == http.MethodGet || req.Method == http.MethodHead {
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil
		}

		ctx := req.Context()
		if u := snapshotUser(resp); u != nil {
			gate.RememberUser(ctx, u)
			return nil
		}

		tokens := gate.CookiePolicy().Read(req)
		if d, ok := DecisionFromContext(ctx); ok && d.Tokens.AccessToken != "" {
			tokens = d.Tokens
		}
		if tokens.AccessToken != "" {
			gate.ForgetUser(ctx, tokens.AccessToken)
		}
		return nil
	}
}

// snapshotUser reads a user out of a JSON response body and restores the body
// for the client.
func snapshotUser(resp *http.Response) *session.User {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		return nil
	}

	orig := resp.Body
	buf, err := io.ReadAll(io.LimitReader(orig, maxSnapshotBody+1))
	if err != nil || len(buf) > maxSnapshotBody {
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(buf), orig), orig}
		return nil
	}
	_ = orig.Close()
	resp.Body = io.NopCloser(bytes.NewReader(buf))

	var wrapped struct {
		User *session.User `json:"user"`
	}
	if json.Unmarshal(buf, &wrapped) == nil && wrapped.User != nil && wrapped.User.ID != "" {
		return wrapped.User
	}
	var bare session.User
	if json.Unmarshal(buf, &bare) == nil && bare.ID != "" {
		return &bare
	}
	return nil
}
