package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	goSession "github.com/MrEthical07/goSession"
)

// RequestIDHeader carries the request correlation ID in both directions.
const RequestIDHeader = "X-Request-ID"

type decisionContextKey struct{}

// DecisionFromContext returns the gate decision made for the request.
func DecisionFromContext(ctx context.Context) (goSession.Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(goSession.Decision)
	return d, ok
}

func withDecision(ctx context.Context, d goSession.Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, d)
}

// RequestID reuses an inbound X-Request-ID or assigns a new one, echoes it on
// the response and stores it, with the client IP, on the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := goSession.WithRequestID(r.Context(), id)
		ctx = goSession.WithClientIP(ctx, clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
