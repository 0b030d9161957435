// Package session reads the caller's bearer token. The token itself is issued
// by the auth provider. Check and Subject only look at expiry and identity
// claims without verifying anything; an identity that gates data the backend
// does not see must come from an Authenticator instead.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken = errors.New("no token")
	ErrExpired = errors.New("token expired")
)

// Session is the per-request credential.
type Session struct {
	Token   string
	Subject string
}

// FromRequest extracts the token from the Authorization header, then from the
// token query parameter (browsers cannot set headers on websocket upgrades).
func FromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := FromHeader(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if r.URL == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func FromHeader(header string) string {
	header = strings.TrimSpace(header)
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Check reports whether the token may be used for a backend call.
// Opaque tokens are accepted as is.
func Check(token string) error {
	return checkAt(token, time.Now())
}

func checkAt(token string, now time.Time) error {
	if strings.TrimSpace(token) == "" {
		return ErrNoToken
	}
	claims, ok := parseClaims(token)
	if !ok {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && !exp.After(now) {
		return ErrExpired
	}
	return nil
}

// Subject returns a stable identity for the token owner: the sub, id or _id
// claim of a JWT, otherwise a hash prefix of the token. The claims are not
// verified, so the result is only trustworthy once the backend accepted the
// token.
func Subject(token string) string {
	if claims, ok := parseClaims(token); ok {
		if sub := claimSubject(claims); sub != "" {
			return sub
		}
	}
	sum := sha256.Sum256([]byte(token))
	return "anon:" + hex.EncodeToString(sum[:8])
}

func claimSubject(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "id", "_id", "userId"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// New validates the token and resolves its subject.
func New(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if err := Check(token); err != nil {
		return Session{}, err
	}
	return Session{Token: token, Subject: Subject(token)}, nil
}

func parseClaims(token string) (jwt.MapClaims, bool) {
	if strings.Count(token, ".") != 2 {
		return nil, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}
