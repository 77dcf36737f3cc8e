package dto

import (
	"time"

	"github.com/prperemyshlev/session-auth/internal/domain"
)

// TokenResponse is returned by sign-in and token refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

func NewTokenResponse(pair *domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		CreatedAt:    pair.CreatedAt,
	}
}

// UserResponse represents a user response
type UserResponse struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	UnconfirmedEmail *string `json:"unconfirmed_email"`
	ConfirmedAt      *string `json:"confirmed_at"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func NewUserResponse(user *domain.User) UserResponse {
	response := UserResponse{
		ID:               user.ID,
		Email:            user.Email,
		UnconfirmedEmail: user.UnconfirmedEmail,
		CreatedAt:        user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        user.UpdatedAt.Format(time.RFC3339),
	}

	if user.ConfirmedAt != nil {
		confirmedAt := user.ConfirmedAt.Format(time.RFC3339)
		response.ConfirmedAt = &confirmedAt
	}

	return response
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse carries a single client-facing error message
type ErrorResponse struct {
	Errors string `json:"errors"`
}

// ValidationErrorResponse carries every validation message of a request
type ValidationErrorResponse struct {
	Errors []string `json:"errors"`
}
