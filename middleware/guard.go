package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// Guard returns middleware that enforces the session gate.
//
// On a refresh the new cookies are set on the response and the request's
// Cookie header is rewritten to carry the new pair, so the handler sees the
// session the browser will hold. Redirects use 307 and carry no session cookies.
func Guard(gate *goSession.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				http.Error(w, "session gate unavailable", http.StatusInternalServerError)
				return
			}

			policy := gate.CookiePolicy()
			d := gate.Evaluate(r.Context(), r.URL.Path, policy.Read(r))

			switch d.Outcome {
			case goSession.OutcomeRedirect:
				http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
				return
			case goSession.OutcomeRefreshed:
				for _, c := range d.Cookies {
					http.SetCookie(w, c)
				}
				policy.Mirror(r, d.Tokens)
			}

			next.ServeHTTP(w, r.WithContext(withDecision(r.Context(), d)))
		})
	}
}
