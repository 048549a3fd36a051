package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/domain/users"
	"github.com/rs/zerolog"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenRevoked    = errors.New("token has been revoked")
)

// TokenRepository is the revocation ledger. Revoke is idempotent: a
// duplicate revocation of the same token is a no-op. Entries become
// logically inert once their expiry passes; DeleteExpired is a
// storage-hygiene sweep, never a correctness requirement.
type TokenRepository interface {
	Revoke(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string, userID int64) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      users.User
}

// Service owns the token lifecycle: login issues, logout revokes, and
// Authenticate decides whether a presented bearer token still names an
// identity. Per token the states are Issued -> Active -> {Expired |
// Revoked}; both terminal states are permanent.
type Service struct {
	users  *users.Service
	tokens TokenRepository
	jwt    *auth.JWTManager
	logger zerolog.Logger
}

func NewService(userSvc *users.Service, tokens TokenRepository, jwt *auth.JWTManager, logger zerolog.Logger) *Service {
	return &Service{
		users:  userSvc,
		tokens: tokens,
		jwt:    jwt,
		logger: logger.With().Str("component", "sessions").Logger(),
	}
}

// Login verifies credentials and mints a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.Verify(ctx, email, password)
	if err != nil {
		return Session{}, err
	}

	token, expiresAt, err := s.jwt.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("login")
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout records the token in the revocation ledger until its natural
// expiry. The caller must already be authenticated, so the token is
// decodable; a second logout with the same token is a no-op.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.jwt.Decode(rawToken)
	if err != nil {
		return ErrUnauthenticated
	}
	userID, err := claims.UserID()
	if err != nil {
		return ErrUnauthenticated
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.tokens.Revoke(ctx, rawToken, userID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.logger.Info().Int64("user_id", userID).Msg("logout, token revoked")
	return nil
}

// Authenticate resolves a raw bearer token to verified claims.
//
// The revocation ledger is consulted with the claimed (unverified)
// identity before the signature check, so a revoked token is reported
// as revoked even if it would also fail verification. Undecodable
// tokens fail immediately; optional-auth routes skip this middleware
// entirely instead of falling through.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*auth.UserClaims, error) {
	claims, err := s.jwt.Decode(rawToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	claimedID, err := claims.UserID()
	if err != nil {
		return nil, ErrUnauthenticated
	}

	revoked, err := s.tokens.IsRevoked(ctx, rawToken, claimedID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	verified, err := s.jwt.Verify(rawToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return verified, nil
}

// PurgeExpired removes ledger entries whose tokens have passed their
// natural expiry. Expired tokens are already rejected by verification,
// so this only reclaims storage.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := s.tokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Msg("purged expired revoked tokens")
	}
	return removed, nil
}
