package jwt

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func signHS(t *testing.T, claims gjwt.Claims) string {
	t.Helper()
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("codec-test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func tokenExpiringAt(t *testing.T, exp time.Time) string {
	t.Helper()
	return signHS(t, Claims{
		UID: "u1",
		RegisteredClaims: gjwt.RegisteredClaims{
			ExpiresAt: gjwt.NewNumericDate(exp),
			IssuedAt:  gjwt.NewNumericDate(exp.Add(-24 * time.Hour)),
		},
	})
}

func TestExpiringSoonBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	cases := []struct {
		name string
		exp  time.Time
		want bool
	}{
		{"far future", now.Add(24 * time.Hour), false},
		{"just outside margin", now.Add(DefaultExpiryMargin + time.Second), false},
		{"exactly at margin", now.Add(DefaultExpiryMargin), true},
		{"inside margin", now.Add(200 * time.Second), true},
		{"already expired", now.Add(-time.Minute), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok := tokenExpiringAt(t, tc.exp)
			if got := ExpiringSoon(tok, now, DefaultExpiryMargin); got != tc.want {
				t.Fatalf("ExpiringSoon = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExpiringSoonFailsSafeOnGarbage(t *testing.T) {
	now := time.Now()
	payloadOnly := "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"soon"}`)) + ".sig"
	noExp := signHS(t, gjwt.RegisteredClaims{Subject: "u1"})

	for _, tok := range []string{"", "abc", "a.b", "a.b.c", "...", payloadOnly, noExp, "a.!!!.c"} {
		if !ExpiringSoon(tok, now, DefaultExpiryMargin) {
			t.Fatalf("expected %q to be reported as expired", tok)
		}
	}
}

func TestDecodeIgnoresSignature(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := tokenExpiringAt(t, exp)
	tampered := tok[:len(tok)-4] + "AAAA"

	claims, err := Decode(tampered)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !claims.Expiry().Equal(exp) {
		t.Fatalf("expiry = %v, want %v", claims.Expiry(), exp)
	}
	if claims.SubjectID() != "u1" {
		t.Fatalf("subject = %q", claims.SubjectID())
	}
}

func TestDecodeReadsPayloadWhateverTheHeader(t *testing.T) {
	now := time.Now()
	exp := now.Add(2 * time.Hour).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"uid":"u1","exp":%d}`, exp)))
	header := func(raw string) string { return base64.RawURLEncoding.EncodeToString([]byte(raw)) }

	cases := map[string]string{
		"garbage header": "!!not-base64!!." + payload + ".sig",
		"no alg":         header(`{"typ":"JWT"}`) + "." + payload + ".sig",
		"unknown alg":    header(`{"alg":"XYZ512","typ":"JWT"}`) + "." + payload + ".",
		"hs256":          tokenExpiringAt(t, time.Unix(exp, 0)),
	}
	for name, tok := range cases {
		if ExpiringSoon(tok, now, DefaultExpiryMargin) {
			t.Fatalf("%s: token with exp two hours ahead reported as expiring", name)
		}
		claims, err := Decode(tok)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if claims.Expiry().Unix() != exp || claims.SubjectID() != "u1" {
			t.Fatalf("%s: got exp %v subject %q", name, claims.Expiry(), claims.SubjectID())
		}
	}
}

func TestSubjectPrecedence(t *testing.T) {
	c := &Claims{UserID: "from-user-id", RegisteredClaims: gjwt.RegisteredClaims{Subject: "from-sub"}}
	if c.SubjectID() != "from-user-id" {
		t.Fatalf("expected user_id to win over sub, got %q", c.SubjectID())
	}
	c.UID = "from-uid"
	if c.SubjectID() != "from-uid" {
		t.Fatalf("expected uid to win, got %q", c.SubjectID())
	}
	var nilClaims *Claims
	if nilClaims.SubjectID() != "" {
		t.Fatal("nil claims must have empty subject")
	}
}

func TestNewer(t *testing.T) {
	now := time.Now()
	older := tokenExpiringAt(t, now.Add(time.Hour))
	newer := tokenExpiringAt(t, now.Add(2*time.Hour))

	if !Newer(newer, older) {
		t.Fatal("expected later exp to be newer")
	}
	if Newer(older, newer) {
		t.Fatal("expected earlier exp to be older")
	}
	if Newer(older, older) {
		t.Fatal("identical token must not be newer than itself")
	}
	if !Newer(older, "garbage") {
		t.Fatal("decodable token must beat garbage")
	}
	if Newer("garbage", older) {
		t.Fatal("garbage must never be newer")
	}
}
