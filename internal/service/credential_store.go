package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/repository"
	"github.com/prperemyshlev/session-auth/internal/utils"
)

const (
	msgInvalid       = "is invalid"
	msgBlank         = "can't be blank"
	msgTaken         = "has already been taken"
	msgPasswordShort = "is too short (minimum is 8 characters)"
	msgUnchanged     = "is the same as the current email"
)

// CredentialStore owns user identity records: validation, normalization,
// credential checks and email confirmation.
type CredentialStore struct {
	users               repository.UserRepository
	bcryptCost          int
	requireConfirmation bool
	now                 func() time.Time
}

// NewCredentialStore creates a credential store. When requireConfirmation is
// false, registered users start out confirmed.
func NewCredentialStore(users repository.UserRepository, bcryptCost int, requireConfirmation bool, now func() time.Time) *CredentialStore {
	if now == nil {
		now = time.Now
	}
	return &CredentialStore{
		users:               users,
		bcryptCost:          bcryptCost,
		requireConfirmation: requireConfirmation,
		now:                 now,
	}
}

// Normalize lowercases email and unconfirmed_email. It is idempotent.
func Normalize(user *domain.User) {
	user.Email = utils.SanitizeEmail(user.Email)
	if user.UnconfirmedEmail != nil {
		normalized := utils.SanitizeEmail(*user.UnconfirmedEmail)
		user.UnconfirmedEmail = &normalized
	}
}

// Validate reports every field error of user. Format is checked before presence
// and both are reported for a blank email.
func Validate(user *domain.User) domain.ValidationErrors {
	var errs domain.ValidationErrors
	validateEmail("email", user.Email, &errs)
	return errs
}

func validateEmail(field, email string, errs *domain.ValidationErrors) {
	if !utils.ValidateEmail(email) {
		errs.Add(field, msgInvalid)
	}
	if email == "" {
		errs.Add(field, msgBlank)
	}
}

func validatePassword(password string, errs *domain.ValidationErrors) {
	switch {
	case password == "":
		errs.Add("password", msgBlank)
	case !utils.ValidatePassword(password):
		errs.Add("password", msgPasswordShort)
	}
}

// Register validates and persists a new user.
func (s *CredentialStore) Register(ctx context.Context, email, password string) (*domain.User, error) {
	user := &domain.User{Email: email}
	Normalize(user)

	errs := Validate(user)
	validatePassword(password, &errs)
	if !errs.Empty() {
		return nil, errs
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if !s.requireConfirmation {
		user.ConfirmedAt = &now
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, takenEmail()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// AuthenticateByCredentials returns the user owning email when password matches.
// A miss and a mismatch both yield (nil, nil).
func (s *CredentialStore) AuthenticateByCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil
	}

	return user, nil
}

// ConfirmEmail marks user as confirmed, promoting a pending email change if
// there is one. It returns false without writing when there is nothing to
// confirm, and false when the stored pending email no longer matches user.
// On success user is replaced by the stored row.
func (s *CredentialStore) ConfirmEmail(ctx context.Context, user *domain.User) (bool, error) {
	if !user.HasPendingEmail() && !user.IsUnconfirmed() {
		return false, nil
	}

	confirmed, err := s.users.ConfirmEmail(ctx, user.ID, user.UnconfirmedEmail, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return false, nil
		case errors.Is(err, repository.ErrDuplicateEmail):
			return false, takenEmail()
		}
		return false, fmt.Errorf("failed to confirm email: %w", err)
	}

	*user = *confirmed
	return true, nil
}

// RequestEmailChange records newEmail as pending until it is confirmed.
func (s *CredentialStore) RequestEmailChange(ctx context.Context, user *domain.User, newEmail string) error {
	candidate := utils.SanitizeEmail(newEmail)

	var errs domain.ValidationErrors
	validateEmail("email", candidate, &errs)
	if errs.Empty() && candidate == user.Email {
		errs.Add("email", msgUnchanged)
	}
	if !errs.Empty() {
		return errs
	}

	if _, err := s.users.GetByEmail(ctx, candidate); err == nil {
		return takenEmail()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check email availability: %w", err)
	}

	now := s.now()
	if err := s.users.SetUnconfirmedEmail(ctx, user.ID, candidate, now); err != nil {
		return fmt.Errorf("failed to request email change: %w", err)
	}

	user.UnconfirmedEmail = &candidate
	user.UpdatedAt = now
	return nil
}

// ChangePassword validates and stores a new password for user.
func (s *CredentialStore) ChangePassword(ctx context.Context, user *domain.User, password string) error {
	var errs domain.ValidationErrors
	validatePassword(password, &errs)
	if !errs.Empty() {
		return errs
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	user.PasswordHash = hash
	user.UpdatedAt = now
	return nil
}

// FindByID returns the user with id, or repository.ErrNotFound.
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// FindByEmail returns the user owning the normalized form of email.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, utils.SanitizeEmail(email))
}

func takenEmail() domain.ValidationErrors {
	var errs domain.ValidationErrors
	errs.Add("email", msgTaken)
	return errs
}
