package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AdminSubject is the subject of every admin session token.
	AdminSubject = "admin"

	devSecret  = "dev-secret"
	defaultTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken is returned for malformed, tampered or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of an admin session token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions builds a token issuer. An empty secret falls back to a fixed
// development secret; production configs are rejected earlier without one.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		secret = devSecret
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long issued sessions stay valid.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new admin session token.
func (s *Sessions) Issue() (string, time.Time, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := Claims{
		Role: AdminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   AdminSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Verify checks the signature, algorithm and expiry of a token.
func (s *Sessions) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject != AdminSubject {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
