package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/pkg/database"
)

const oauthTokenColumns = `id, user_id, token, refresh_token, created_at, expires_in`

// oauthTokenRepository implements OAuthTokenRepository interface
type oauthTokenRepository struct {
	db *database.Postgres
}

// NewOAuthTokenRepository creates a new access token repository
func NewOAuthTokenRepository(db *database.Postgres) OAuthTokenRepository {
	return &oauthTokenRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateIfAbsent inserts the pair; a concurrent insert for the same user loses
// silently on the user_id unique index and reports false.
func (r *oauthTokenRepository) CreateIfAbsent(ctx context.Context, token *domain.OAuthAccessToken) (bool, error) {
	result, err := r.insert(ctx, r.db.DB, token, `ON CONFLICT (user_id) DO NOTHING`)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *oauthTokenRepository) insert(ctx context.Context, db execer, token *domain.OAuthAccessToken, onConflict string) (sql.Result, error) {
	query := `
		INSERT INTO oauth_access_tokens (id, user_id, token, refresh_token, created_at, expires_in)
		VALUES ($1, $2, $3, $4, $5, $6)
	` + onConflict

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	result, err := db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.RefreshToken,
		token.CreatedAt,
		int64(token.ExpiresIn/time.Second),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("access token for user %s collides: %w", token.UserID, ErrDuplicateToken)
		}
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	return result, nil
}

// GetByToken retrieves a pair by its access token
func (r *oauthTokenRepository) GetByToken(ctx context.Context, token string) (*domain.OAuthAccessToken, error) {
	return r.getBy(ctx, "token", token)
}

// GetByRefreshToken retrieves a pair by its refresh token
func (r *oauthTokenRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthAccessToken, error) {
	return r.getBy(ctx, "refresh_token", refreshToken)
}

// GetByUserID retrieves the pair owned by a user
func (r *oauthTokenRepository) GetByUserID(ctx context.Context, userID string) (*domain.OAuthAccessToken, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("access token by user_id not found: %w", ErrNotFound)
	}
	return r.getBy(ctx, "user_id", userID)
}

// getBy is only called with column names fixed at compile time.
func (r *oauthTokenRepository) getBy(ctx context.Context, column, value string) (*domain.OAuthAccessToken, error) {
	query := `SELECT ` + oauthTokenColumns + ` FROM oauth_access_tokens WHERE ` + column + ` = $1`

	token := &domain.OAuthAccessToken{}
	var expiresIn int64

	err := r.db.DB.QueryRowContext(ctx, query, value).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.RefreshToken,
		&token.CreatedAt,
		&expiresIn,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("access token by %s not found: %w", column, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get access token by %s: %w", column, err)
	}

	token.ExpiresIn = time.Duration(expiresIn) * time.Second
	return token, nil
}

// Delete deletes a pair by ID
func (r *oauthTokenRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db.DB, id)
}

func deleteByID(ctx context.Context, db execer, id string) error {
	query := `DELETE FROM oauth_access_tokens WHERE id = $1`

	result, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("access token with id %s not found: %w", id, ErrNotFound)
	}

	return nil
}

// DeleteByUserID deletes the pair owned by a user, if any
func (r *oauthTokenRepository) DeleteByUserID(ctx context.Context, userID string) error {
	query := `DELETE FROM oauth_access_tokens WHERE user_id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete access tokens by user id: %w", err)
	}

	return nil
}

// Rotate replaces the pair identified by oldID with next in one transaction
func (r *oauthTokenRepository) Rotate(ctx context.Context, oldID string, next *domain.OAuthAccessToken) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := deleteByID(ctx, tx, oldID); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := r.insert(ctx, tx, next, ""); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token rotation: %w", err)
	}

	return nil
}
