package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/repository"
	"github.com/prperemyshlev/session-auth/internal/utils"
	"go.uber.org/zap"
)

// maxIssueAttempts bounds the read/insert loop of IssueOrReuse. A second pass
// is only needed when a concurrent sign-in wins the insert.
const maxIssueAttempts = 3

// TokenManager issues, validates, revokes and rotates the single access token
// pair a user may hold. Every expiry decision goes through
// domain.OAuthAccessToken.IsExpired with the manager's clock.
type TokenManager struct {
	tokens  repository.OAuthTokenRepository
	jwt     *utils.JWTManager
	now     func() time.Time
	logger  *zap.Logger
	metrics *Metrics
}

func NewTokenManager(
	tokens repository.OAuthTokenRepository,
	jwtManager *utils.JWTManager,
	now func() time.Time,
	logger *zap.Logger,
	metrics *Metrics,
) *TokenManager {
	if now == nil {
		now = time.Now
	}
	return &TokenManager{
		tokens:  tokens,
		jwt:     jwtManager,
		now:     now,
		logger:  logger,
		metrics: metrics,
	}
}

// IssueOrReuse returns the user's active pair unchanged, or creates one. Expired
// pairs are reaped first. Concurrent callers converge on a single row.
func (m *TokenManager) IssueOrReuse(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		existing, err := m.tokens.GetByUserID(ctx, user.ID)
		switch {
		case err == nil && !existing.IsExpired(m.now()):
			return existing.Pair(), nil
		case err == nil:
			if err := m.reap(ctx, existing); err != nil {
				return nil, err
			}
		case !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}

		next, err := m.build(user.ID)
		if err != nil {
			return nil, err
		}

		created, err := m.tokens.CreateIfAbsent(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("failed to save access token: %w", err)
		}
		if created {
			m.metrics.TokenIssued(ctx)
			return next.Pair(), nil
		}

		m.logger.Debug("Concurrent token issuance detected, reloading",
			zap.String("user_id", user.ID),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, fmt.Errorf("failed to issue access token for user %s: issuance did not settle", user.ID)
}

// Revoke deletes the pair whose access token is token. Unknown and expired
// tokens fail with domain.ErrInvalidToken.
func (m *TokenManager) Revoke(ctx context.Context, token string) error {
	existing, err := m.lookup(ctx, m.tokens.GetByToken, token)
	if err != nil {
		return err
	}

	if existing.IsExpired(m.now()) {
		if err := m.reap(ctx, existing); err != nil {
			return err
		}
		return domain.ErrInvalidToken
	}

	if err := m.tokens.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("failed to revoke access token: %w", err)
	}

	m.metrics.TokenRevoked(ctx)
	return nil
}

// Refresh exchanges a refresh token for a brand-new pair. The old pair stops
// working immediately. An expired pair is deleted and domain.ErrExpiredToken is
// returned.
func (m *TokenManager) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	existing, err := m.lookup(ctx, m.tokens.GetByRefreshToken, refreshToken)
	if err != nil {
		return nil, err
	}

	if existing.IsExpired(m.now()) {
		if err := m.reap(ctx, existing); err != nil {
			return nil, err
		}
		return nil, domain.ErrExpiredToken
	}

	next, err := m.build(existing.UserID)
	if err != nil {
		return nil, err
	}

	if err := m.tokens.Rotate(ctx, existing.ID, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to rotate access token: %w", err)
	}

	m.metrics.TokenRefreshed(ctx)
	return next.Pair(), nil
}

// Authenticate resolves a bearer access token to its stored pair.
func (m *TokenManager) Authenticate(ctx context.Context, accessToken string) (*domain.OAuthAccessToken, error) {
	if _, err := m.jwt.ParseAccessToken(accessToken); err != nil {
		return nil, domain.ErrInvalidToken
	}

	existing, err := m.lookup(ctx, m.tokens.GetByToken, accessToken)
	if err != nil {
		return nil, err
	}

	if existing.IsExpired(m.now()) {
		return nil, domain.ErrExpiredToken
	}

	return existing, nil
}

// RevokeAll deletes whatever pair userID holds.
func (m *TokenManager) RevokeAll(ctx context.Context, userID string) error {
	if err := m.tokens.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke access tokens: %w", err)
	}
	return nil
}

func (m *TokenManager) lookup(
	ctx context.Context,
	get func(context.Context, string) (*domain.OAuthAccessToken, error),
	value string,
) (*domain.OAuthAccessToken, error) {
	if value == "" {
		return nil, domain.ErrInvalidToken
	}

	existing, err := get(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return existing, nil
}

// reap deletes an expired pair. Losing the delete to a concurrent request is fine.
func (m *TokenManager) reap(ctx context.Context, expired *domain.OAuthAccessToken) error {
	if err := m.tokens.Delete(ctx, expired.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete expired access token: %w", err)
	}

	m.logger.Debug("Expired access token reaped", zap.String("user_id", expired.UserID))
	return nil
}

func (m *TokenManager) build(userID string) (*domain.OAuthAccessToken, error) {
	issuedAt := m.now().UTC()

	accessToken, err := m.jwt.GenerateAccessToken(userID, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := m.jwt.GenerateRefreshToken(userID, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.OAuthAccessToken{
		UserID:       userID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    issuedAt,
		ExpiresIn:    m.jwt.AccessTokenExpiry(),
	}, nil
}
