package service

import (
	"context"
	"errors"

	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/repository"
	"github.com/prperemyshlev/session-auth/internal/utils"
	"go.uber.org/zap"
)

// SignedTokenService issues confirmation and password-reset tokens and resolves
// them back to users.
type SignedTokenService struct {
	codec  *utils.SignedTokenCodec
	users  repository.UserRepository
	logger *zap.Logger
}

func NewSignedTokenService(codec *utils.SignedTokenCodec, users repository.UserRepository, logger *zap.Logger) *SignedTokenService {
	return &SignedTokenService{
		codec:  codec,
		users:  users,
		logger: logger,
	}
}

// Issue returns a token for user scoped to purpose.
func (s *SignedTokenService) Issue(user *domain.User, purpose domain.TokenPurpose) (string, error) {
	return s.codec.Issue(user.ID, purpose, binding(user, purpose))
}

// Verify resolves token to its user. It returns false when the token is
// malformed, tampered, expired, issued for another purpose, bound to state the
// user no longer has, or when the user no longer exists.
func (s *SignedTokenService) Verify(ctx context.Context, token string, purpose domain.TokenPurpose) (*domain.User, bool) {
	claims, ok := s.codec.Verify(token, purpose)
	if !ok {
		return nil, false
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Failed to resolve signed token owner",
				zap.String("purpose", string(purpose)),
				zap.Error(err),
			)
		}
		return nil, false
	}

	if !s.codec.BindingMatches(claims, binding(user, purpose)) {
		return nil, false
	}

	return user, true
}

// binding ties a token to the user state it was issued for: a confirmation token
// to the address being confirmed, a reset token to the password it replaces.
func binding(user *domain.User, purpose domain.TokenPurpose) string {
	switch purpose {
	case domain.PurposeConfirmEmail:
		return user.ConfirmableEmail()
	case domain.PurposeResetPassword:
		return user.PasswordHash
	}
	return ""
}
