package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/companyhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/companyhub/internal/security/auth"
)

// UserLookup resolves active users for authentication
type UserLookup interface {
	GetActiveByUsername(ctx context.Context, username string) (*domain.User, error)
	GetActiveByID(ctx context.Context, id string) (*domain.User, error)
}

// TokenService issues and resolves session tokens
type TokenService interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
	Resolve(token string) (string, error)
}

// AuthService exchanges credentials for bearer tokens and resolves them back to users
type AuthService struct {
	users    UserLookup
	verifier PasswordHasher
	tokens   TokenService
	ttl      time.Duration
	logger   *slog.Logger

	// dummyHash is verified for unknown usernames so they cost the same as a wrong password
	dummyHash string
}

// LoginResult is the token response
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"` // seconds
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"-"`
}

// NewAuthService creates the auth gateway; ttl <= 0 selects auth.DefaultTokenTTL
func NewAuthService(users UserLookup, verifier PasswordHasher, tokens TokenService, ttl time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	dummy, err := verifier.Hash(uuid.NewString())
	if err != nil {
		logger.Warn("failed to prepare dummy password hash", slog.String("error", err.Error()))
	}
	return &AuthService{
		users:     users,
		verifier:  verifier,
		tokens:    tokens,
		ttl:       ttl,
		logger:    logger,
		dummyHash: dummy,
	}
}

// Login verifies username and password. Unknown, inactive and wrong-password
// attempts all return domain.ErrAuthFailed.
func (s *AuthService) Login(ctx context.Context, username, password string) (_ *LoginResult, err error) {
	ctx, span := tracing.Start(ctx, "AuthService.Login")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveAuthAttempt("login", resultLabel(err))
	}()

	user, err := s.users.GetActiveByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		s.verifier.Verify(password, s.dummyHash)
		s.logger.Info("login failed: unknown or inactive user", slog.String("username", username))
		return nil, domain.ErrAuthFailed
	}
	if err != nil {
		return nil, err
	}

	if !s.verifier.Verify(password, user.PasswordHash) {
		s.logger.Info("login failed: wrong password", slog.String("user_id", user.ID))
		return nil, domain.ErrAuthFailed
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, s.ttl)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.ttl.Seconds()),
		ExpiresAt:   expiresAt,
		UserID:      user.ID,
	}, nil
}

// ResolveCurrentUser maps a bearer token to its active user. Any token or
// lookup problem other than a storage failure is domain.ErrUnauthorized.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, token string) (_ *domain.User, err error) {
	ctx, span := tracing.Start(ctx, "AuthService.ResolveCurrentUser")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveAuthAttempt("resolve", resultLabel(err))
	}()

	subject, err := s.tokens.Resolve(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.users.GetActiveByID(ctx, subject)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, domain.ErrStorageUnavailable):
		return nil, err
	default:
		return nil, domain.ErrUnauthorized
	}
}
