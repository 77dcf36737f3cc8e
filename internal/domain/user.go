package domain

import "time"

// User represents a user in the system
type User struct {
	ID               string     `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	UnconfirmedEmail *string    `json:"unconfirmed_email" db:"unconfirmed_email"`
	ConfirmedAt      *time.Time `json:"confirmed_at" db:"confirmed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// ConfirmableEmail returns the address a confirmation token is issued for:
// the pending email change if there is one, the current email otherwise.
func (u *User) ConfirmableEmail() string {
	if u.HasPendingEmail() {
		return *u.UnconfirmedEmail
	}
	return u.Email
}

// HasPendingEmail reports whether an email change awaits confirmation.
func (u *User) HasPendingEmail() bool {
	return u.UnconfirmedEmail != nil && *u.UnconfirmedEmail != ""
}

func (u *User) IsConfirmed() bool {
	return u.ConfirmedAt != nil
}

func (u *User) IsUnconfirmed() bool {
	return u.ConfirmedAt == nil
}
