package jwt

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiryMargin is the safety window applied by [ExpiringSoon]. A token that
// dies within this window is treated as already expired so it never expires
// mid-request.
const DefaultExpiryMargin = 300 * time.Second

var (
	// ErrMalformed is returned when the token is not a three-segment JWT with a JSON payload.
	ErrMalformed = errors.New("malformed token")
	// ErrMissingExpiry is returned when the payload carries no exp claim.
	ErrMissingExpiry = errors.New("token has no expiry claim")
)

// Claims is the subset of access-token claims the session layer reads.
type Claims struct {
	UID    string `json:"uid,omitempty"`
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the user identifier carried by the token, preferring the
// explicit uid claim over user_id and sub.
func (c *Claims) SubjectID() string {
	if c == nil {
		return ""
	}
	switch {
	case c.UID != "":
		return c.UID
	case c.UserID != "":
		return c.UserID
	default:
		return c.RegisteredClaims.Subject
	}
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Decode reads the payload of token without verifying the signature. Only the
// middle segment is inspected; the header and signature may be anything.
func Decode(token string) (*Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, ErrMalformed
	}

	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}
	return claims, nil
}

// ExpiringSoon reports whether token expires at or before now+margin. Tokens that
// cannot be decoded are always reported as expiring.
func ExpiringSoon(token string, now time.Time, margin time.Duration) bool {
	claims, err := Decode(token)
	if err != nil {
		return true
	}
	return !claims.Expiry().After(now.Add(margin))
}

// Newer reports whether candidate was issued after current. It compares exp first
// and iat second. A token that cannot be decoded is never newer than one that can.
func Newer(candidate, current string) bool {
	c, cErr := Decode(candidate)
	if cErr != nil {
		return false
	}
	cur, curErr := Decode(current)
	if curErr != nil {
		return true
	}

	if ce, ue := c.Expiry(), cur.Expiry(); !ce.Equal(ue) {
		return ce.After(ue)
	}
	var ci, ui time.Time
	if c.IssuedAt != nil {
		ci = c.IssuedAt.Time
	}
	if cur.IssuedAt != nil {
		ui = cur.IssuedAt.Time
	}
	return ci.After(ui)
}
