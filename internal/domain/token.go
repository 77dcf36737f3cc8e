package domain

import "time"

// OAuthAccessToken is the single live access/refresh pair owned by a user.
type OAuthAccessToken struct {
	ID           string        `json:"id" db:"id"`
	UserID       string        `json:"user_id" db:"user_id"`
	Token        string        `json:"-" db:"token"`
	RefreshToken string        `json:"-" db:"refresh_token"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	ExpiresIn    time.Duration `json:"expires_in" db:"expires_in"`
}

// ExpiresAt returns the instant after which the pair is no longer usable.
func (t *OAuthAccessToken) ExpiresAt() time.Time {
	return t.CreatedAt.Add(t.ExpiresIn)
}

// IsExpired is the single expiry predicate shared by every token path.
func (t *OAuthAccessToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt())
}

// Pair returns the client-facing credentials of the row.
func (t *OAuthAccessToken) Pair() *TokenPair {
	return &TokenPair{
		AccessToken:  t.Token,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(t.ExpiresIn.Seconds()),
		CreatedAt:    t.CreatedAt.Unix(),
	}
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

// TokenPurpose scopes a signed token to a single flow.
type TokenPurpose string

const (
	PurposeConfirmEmail  TokenPurpose = "confirm_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

// Valid reports whether p belongs to the closed set of purposes.
func (p TokenPurpose) Valid() bool {
	switch p {
	case PurposeConfirmEmail, PurposeResetPassword:
		return true
	}
	return false
}
