package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidToken covers bad signatures, malformed and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingClaim is returned when a token verifies but carries no email.
	ErrMissingClaim = errors.New("token has no email claim")
	// ErrNoSecret is returned when a token service is built without a signing key.
	ErrNoSecret = errors.New("token signing secret is empty")
)

// Claims defines the JWT claims structure.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer issues bearer tokens for an email.
type TokenIssuer interface {
	Issue(email string) (string, error)
}

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(tokenStr string) (*Claims, error)
}

// TokenService signs and verifies HS256 tokens with a process-wide secret.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option customises a TokenService.
type Option func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService. An empty secret is refused.
func NewTokenService(secret string, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	s := &TokenService{key: []byte(secret), ttl: TokenTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a new token for the given email.
func (s *TokenService) Issue(email string) (string, error) {
	if email == "" {
		return "", ErrMissingClaim
	}
	now := s.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string. A token is valid strictly
// before its expiry.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, ErrMissingClaim
	}
	return claims, nil
}
