package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnverified means the token could not be tied to an owner.
var ErrUnverified = errors.New("token not verified")

// Authenticator resolves a token into a session whose subject can be trusted.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Session, error)
}

// SignedTokens verifies HMAC-signed JWTs with the secret shared with the
// auth provider.
type SignedTokens struct {
	secret []byte
	parser *jwt.Parser
}

func NewSignedTokens(secret string) *SignedTokens {
	return &SignedTokens{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})),
	}
}

func (s *SignedTokens) Authenticate(_ context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrNoToken
	}

	claims := jwt.MapClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Session{}, ErrExpired
	case err != nil:
		return Session{}, fmt.Errorf("%w: %v", ErrUnverified, err)
	}

	subject := claimSubject(claims)
	if subject == "" {
		return Session{}, fmt.Errorf("%w: no subject claim", ErrUnverified)
	}
	return Session{Token: token, Subject: subject}, nil
}

// CheckFunc authenticates by asking something that can verify the token,
// usually one cheap backend call. The subject is resolved only after the
// check passed.
type CheckFunc func(ctx context.Context, token string) error

func (f CheckFunc) Authenticate(ctx context.Context, token string) (Session, error) {
	sess, err := New(token)
	if err != nil {
		return Session{}, err
	}
	if err := f(ctx, sess.Token); err != nil {
		if errors.Is(err, ErrExpired) || errors.Is(err, ErrNoToken) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("%w: %v", ErrUnverified, err)
	}
	return sess, nil
}
