package session

import "time"

// Durable-storage and cookie keys shared by every copy of a session.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	// UserKey holds the JSON user snapshot in durable storage only.
	UserKey = "user"
)

// TokenPair is one access/refresh credential pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether neither token is set.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Complete reports whether both tokens are set.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// User is the profile snapshot cached next to the tokens.
type User struct {
	ID              string `json:"id"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Verified        bool   `json:"is_verified"`
	ProfileComplete bool   `json:"is_profile_complete"`
	IDVerified      bool   `json:"is_id_verified"`
}

// Clone returns a copy of u, or nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// Session is the authentication state of one user in one client.
type Session struct {
	TokenPair
	User      *User
	Version   uint64
	UpdatedAt time.Time
}

// Authenticated reports whether the session holds any credential.
func (s Session) Authenticated() bool {
	return !s.TokenPair.Empty()
}
