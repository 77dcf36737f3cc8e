package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/repository"
	"go.uber.org/zap"
)

// authService implements AuthService interface
type authService struct {
	store    *CredentialStore
	signed   *SignedTokenService
	tokens   *TokenManager
	notifier Notifier
	logger   *zap.Logger
	metrics  *Metrics
}

// NewAuthService creates a new auth service
func NewAuthService(
	store *CredentialStore,
	signed *SignedTokenService,
	tokens *TokenManager,
	notifier Notifier,
	logger *zap.Logger,
	metrics *Metrics,
) AuthService {
	return &authService{
		store:    store,
		signed:   signed,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Register creates a user and, when it still has to be confirmed, sends it a
// confirmation token.
func (s *authService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.store.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))

	if user.IsUnconfirmed() {
		s.sendConfirmation(ctx, user)
	}

	return user, nil
}

// SignIn exchanges credentials of a confirmed user for its token pair.
func (s *authService) SignIn(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.store.AuthenticateByCredentials(ctx, email, password)
	if err != nil {
		s.metrics.SignIn(ctx, OutcomeError)
		return nil, err
	}
	if user == nil {
		s.metrics.SignIn(ctx, OutcomeInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if user.IsUnconfirmed() {
		s.metrics.SignIn(ctx, OutcomeUnconfirmed)
		return nil, domain.ErrUnconfirmedEmail
	}

	pair, err := s.tokens.IssueOrReuse(ctx, user)
	if err != nil {
		s.metrics.SignIn(ctx, OutcomeError)
		return nil, err
	}

	s.metrics.SignIn(ctx, OutcomeSuccess)
	s.logger.Info("User signed in", zap.String("user_id", user.ID))
	return pair, nil
}

// SignOut revokes the pair of accessToken. Unknown, expired and already revoked
// tokens fail with domain.ErrInvalidToken; storage errors are returned wrapped.
func (s *authService) SignOut(ctx context.Context, accessToken string) error {
	return s.tokens.Revoke(ctx, accessToken)
}

// RefreshToken rotates the pair owning refreshToken.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	pair, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Token pair rotated")
	return pair, nil
}

func (s *authService) IssueConfirmationToken(_ context.Context, user *domain.User) (string, error) {
	return s.signed.Issue(user, domain.PurposeConfirmEmail)
}

// ResendConfirmation sends a fresh confirmation token when the user owning email
// has anything to confirm. Unknown emails are ignored.
func (s *authService) ResendConfirmation(ctx context.Context, email string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.IsConfirmed() && !user.HasPendingEmail() {
		return nil
	}

	s.sendConfirmation(ctx, user)
	return nil
}

// ConfirmEmail applies a confirmation token. Tokens that are invalid, or that
// have nothing left to confirm, fail with domain.ErrInvalidToken.
func (s *authService) ConfirmEmail(ctx context.Context, signedToken string) (*domain.User, error) {
	user, ok := s.signed.Verify(ctx, signedToken, domain.PurposeConfirmEmail)
	if !ok {
		return nil, domain.ErrInvalidToken
	}

	confirmed, err := s.store.ConfirmEmail(ctx, user)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, domain.ErrInvalidToken
	}

	s.logger.Info("Email confirmed", zap.String("user_id", user.ID))
	return user, nil
}

func (s *authService) IssuePasswordResetToken(_ context.Context, user *domain.User) (string, error) {
	return s.signed.Issue(user, domain.PurposeResetPassword)
}

// RequestPasswordReset sends a reset token to the owner of email. Unknown
// emails are ignored so the response does not reveal which addresses exist.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	token, err := s.IssuePasswordResetToken(ctx, user)
	if err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Error("Failed to send password reset",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
	return nil
}

// ResetPassword sets a new password through a reset token and signs the user
// out everywhere.
func (s *authService) ResetPassword(ctx context.Context, signedToken, password string) error {
	user, ok := s.signed.Verify(ctx, signedToken, domain.PurposeResetPassword)
	if !ok {
		return domain.ErrInvalidToken
	}

	if err := s.store.ChangePassword(ctx, user, password); err != nil {
		return err
	}

	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	s.logger.Info("Password reset", zap.String("user_id", user.ID))
	return nil
}

// Authenticate resolves a bearer access token to its owner.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	token, err := s.tokens.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ChangeEmail records newEmail as pending and sends a confirmation token to it.
// The current email stays in use until the token is applied.
func (s *authService) ChangeEmail(ctx context.Context, userID, newEmail string) (*domain.User, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.store.RequestEmailChange(ctx, user, newEmail); err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, user)
	return user, nil
}

// sendConfirmation delivers a confirmation token to the confirmable email.
// Delivery failures are logged, the caller can always resend.
func (s *authService) sendConfirmation(ctx context.Context, user *domain.User) {
	token, err := s.IssueConfirmationToken(ctx, user)
	if err != nil {
		s.logger.Error("Failed to issue confirmation token",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return
	}

	if err := s.notifier.SendConfirmation(ctx, user.ConfirmableEmail(), token); err != nil {
		s.logger.Error("Failed to send confirmation",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
}
