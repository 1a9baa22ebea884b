package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/kyc"
	"github.com/MrEthical07/goSession/session"
)

// Onboarding returns middleware that applies flow to page navigations. It must
// run after [Guard].
//
// Signed-out visitors are resolved from the cookies alone. For signed-in
// visitors the user comes from the refresh that just happened or from the
// gate's user cache; when neither knows the user the request passes through
// unchanged. An access token inside the expiry margin does not count as signed
// in, so a dead session can always reach the login page.
func Onboarding(gate *goSession.Gate, flow *kyc.Flow) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil || flow == nil || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
				next.ServeHTTP(w, r)
				return
			}

			user, known := resolveUser(gate, r)
			if !known {
				next.ServeHTTP(w, r)
				return
			}

			if to, ok := flow.Redirect(r.URL.Path, user); ok {
				gate.Metrics().Inc(goSession.MetricOnboardingRedirect)
				http.Redirect(w, r, to, http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func resolveUser(gate *goSession.Gate, r *http.Request) (*session.User, bool) {
	tokens := gate.CookiePolicy().Read(r)
	if d, ok := DecisionFromContext(r.Context()); ok {
		if d.User != nil {
			return d.User, true
		}
		tokens = d.Tokens
	}

	if tokens.Empty() {
		return nil, true
	}
	if !gate.AccessUsable(tokens.AccessToken) {
		return nil, false
	}

	u, err := gate.User(r.Context(), tokens.AccessToken)
	if err != nil {
		return nil, false
	}
	return u, true
}
