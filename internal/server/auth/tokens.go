// Package auth implements credential primitives: signed session tokens,
// single-purpose link tokens for email flows, and password hashing.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two session token flavours.
type Kind int

const (
	// KindAccess tokens are short-lived and presented on every request.
	KindAccess Kind = iota
	// KindRenewal tokens are longer-lived and exchanged for fresh access tokens.
	KindRenewal
)

var (
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrMalformed        = errors.New("token malformed")
	ErrExpired          = errors.New("token expired")
	ErrKindMismatch     = errors.New("token kind mismatch")
)

// Claims is the payload carried by both token kinds. Refresh marks renewal
// tokens so that one kind can never be used in place of the other.
type Claims struct {
	Refresh bool `json:"refresh"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HMAC-signed session tokens.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret []byte) *TokenCodec {
	return &TokenCodec{secret: secret, now: time.Now}
}

// Issue creates a signed token of the given kind for subject, expiring after
// ttl. Every token gets a unique ID so it can be revoked individually.
func (c *TokenCodec) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		Refresh: kind == KindRenewal,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, additionally requiring it to be of
// the expected kind. An access token never passes as a renewal token and
// vice versa.
func (c *TokenCodec) Verify(tokenString string, expected Kind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrMalformed
		}
	}

	// A well-signed token is still useless without a subject or an ID:
	// the subject names the account and the ID is the revocation handle.
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrMalformed
	}

	if claims.Refresh != (expected == KindRenewal) {
		return nil, ErrKindMismatch
	}
	return claims, nil
}
