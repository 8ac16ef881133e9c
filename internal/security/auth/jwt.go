package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of a session token when none is configured
const DefaultTokenTTL = 30 * time.Minute

var (
	// ErrInvalidToken covers bad signatures, wrong algorithms, malformed payloads and expiry
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingToken is returned when no bearer credential is present
	ErrMissingToken = errors.New("missing bearer token")
)

// TokenManager issues and resolves HS256 session tokens. The subject is the user id.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "companyhub"
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// WithClock replaces the time source used for issuing and expiry checks
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// Issue signs a token for subject valid for ttl (DefaultTokenTTL when ttl <= 0)
func (tm *TokenManager) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("subject required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := tm.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tm.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Resolve verifies a token and returns its subject. A token is expired once now >= exp.
func (tm *TokenManager) Resolve(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return tm.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	if !tm.now().Before(claims.ExpiresAt.Time) {
		return "", fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// ExtractToken returns the credential of a "Bearer <token>" header; the scheme is case-insensitive
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", fmt.Errorf("%w: invalid authorization header", ErrMissingToken)
	}
	return token, nil
}
