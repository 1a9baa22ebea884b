package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/kyc"
	"github.com/MrEthical07/goSession/middleware"
)

// newRouter mounts the operational endpoints and puts every other path behind
// the session guard and the onboarding flow.
func newRouter(gate *goSession.Gate, flow *kyc.Flow, upstream, metrics http.Handler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(accessLog(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Guard(gate))
		r.Use(middleware.Onboarding(gate, flow))
		r.Handle("/*", upstream)
	})

	return r
}

// newProxy forwards to upstream and feeds user snapshots from upstream
// responses back into the gate's user cache.
func newProxy(upstream *url.URL, gate *goSession.Gate, log zerolog.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("upstream unavailable")
		w.WriteHeader(http.StatusBadGateway)
	}
	proxy.ModifyResponse = middleware.CaptureUser(gate)
	return proxy
}

func accessLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Debug().
				Str("request_id", goSession.RequestIDFromContext(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}
