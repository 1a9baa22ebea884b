package goSession

import (
	"net/http"

	"github.com/MrEthical07/goSession/session"
)

// Outcome is the result class of one [Gate.Evaluate] call.
type Outcome uint8

const (
	// OutcomeBypass means the path is public and was not inspected.
	OutcomeBypass Outcome = iota
	// OutcomeUnprotected means the path is outside every protected prefix.
	OutcomeUnprotected
	// OutcomeServe means the access token is valid for at least the expiry margin.
	OutcomeServe
	// OutcomeRefreshed means the pair was refreshed; Decision.Cookies must be written.
	OutcomeRefreshed
	// OutcomeRedirect means the caller must be sent to Decision.Location.
	OutcomeRedirect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBypass:
		return "bypass"
	case OutcomeUnprotected:
		return "unprotected"
	case OutcomeServe:
		return "serve"
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Reason explains an [OutcomeRedirect].
type Reason uint8

const (
	ReasonNone Reason = iota
	// ReasonNoTokens means neither cookie was present.
	ReasonNoTokens
	// ReasonNoRefreshToken means the access token was unusable and there was nothing to refresh with.
	ReasonNoRefreshToken
	// ReasonRefreshFailed means the refresh call failed, timed out or was throttled.
	ReasonRefreshFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoTokens:
		return "no_tokens"
	case ReasonNoRefreshToken:
		return "no_refresh_token"
	case ReasonRefreshFailed:
		return "refresh_failed"
	default:
		return "unknown"
	}
}

// Decision is what the gate decided for one request.
type Decision struct {
	Outcome Outcome
	Reason  Reason
	// Location is set for OutcomeRedirect.
	Location string
	// Cookies is set for OutcomeRefreshed and must be written to the response.
	Cookies []*http.Cookie
	// Tokens is the pair the request continues with. For OutcomeRefreshed it is the new pair.
	Tokens session.TokenPair
	// User is the profile returned by a refresh, when the backend sent one.
	User *session.User
}

// Proceed reports whether the request may continue to the page.
func (d Decision) Proceed() bool {
	return d.Outcome != OutcomeRedirect
}
