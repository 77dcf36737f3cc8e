package service

import (
	"context"
	"time"

	"github.com/prperemyshlev/session-auth/internal/domain"
)

// AuthService defines methods for authentication operations
type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (*domain.TokenPair, error)
	SignOut(ctx context.Context, accessToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)

	IssueConfirmationToken(ctx context.Context, user *domain.User) (string, error)
	ResendConfirmation(ctx context.Context, email string) error
	ConfirmEmail(ctx context.Context, signedToken string) (*domain.User, error)

	IssuePasswordResetToken(ctx context.Context, user *domain.User) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, signedToken, password string) error

	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
	ChangeEmail(ctx context.Context, userID, newEmail string) (*domain.User, error)
}

// Limiter decides whether a keyed request fits into its budget
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}
