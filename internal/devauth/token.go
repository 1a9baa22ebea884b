package devauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

type sessionID [16]byte

const (
	refreshTokenRawSize = 48
	refreshSecretSize   = 32
)

var errTokenSize = errors.New("invalid refresh token size")

func newSessionID() (sessionID, error) {
	var sid sessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s sessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func newRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func hashRefreshSecret(secret [refreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// encodeRefreshToken packs the session id and secret into one base64url token.
func encodeRefreshToken(sid sessionID, secret [refreshSecretSize]byte) string {
	var raw [refreshTokenRawSize]byte
	copy(raw[:len(sid)], sid[:])
	copy(raw[len(sid):], secret[:])
	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func decodeRefreshToken(token string) (sessionID, [refreshSecretSize]byte, error) {
	var sid sessionID
	var secret [refreshSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return sid, secret, err
	}
	if len(raw) != refreshTokenRawSize {
		return sid, secret, errTokenSize
	}

	copy(sid[:], raw[:len(sid)])
	copy(secret[:], raw[len(sid):])
	return sid, secret, nil
}
