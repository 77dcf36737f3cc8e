package repository

import (
	"context"
	"time"

	"github.com/prperemyshlev/session-auth/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// UpdatePassword replaces the password hash of user id and nothing else.
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	// SetUnconfirmedEmail records email as the pending email of user id.
	SetUnconfirmedEmail(ctx context.Context, id, email string, updatedAt time.Time) error
	// ConfirmEmail confirms user id and promotes its pending email, if any, in
	// one statement. It applies only while unconfirmed_email still equals
	// pending and there is something to confirm; otherwise it returns ErrNotFound.
	ConfirmEmail(ctx context.Context, id string, pending *string, confirmedAt time.Time) (*domain.User, error)
}

// OAuthTokenRepository defines methods for access token pair operations
type OAuthTokenRepository interface {
	// CreateIfAbsent inserts token unless its user already owns a pair.
	// It reports whether the row was inserted.
	CreateIfAbsent(ctx context.Context, token *domain.OAuthAccessToken) (bool, error)
	GetByToken(ctx context.Context, token string) (*domain.OAuthAccessToken, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthAccessToken, error)
	GetByUserID(ctx context.Context, userID string) (*domain.OAuthAccessToken, error)
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
	// Rotate atomically deletes the pair identified by oldID and inserts next.
	// It returns ErrNotFound if oldID was already gone.
	Rotate(ctx context.Context, oldID string, next *domain.OAuthAccessToken) error
}
