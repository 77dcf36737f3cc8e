package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RefreshTokenRequest represents a token refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// EmailRequest carries the address a confirmation or reset is requested for
type EmailRequest struct {
	Email string `json:"email" form:"email" binding:"required"`
}

// ResetPasswordRequest represents a password reset through a signed token
type ResetPasswordRequest struct {
	Password string `json:"password" form:"password"`
}

// ChangeEmailRequest represents an email change request
type ChangeEmailRequest struct {
	Email string `json:"email" form:"email"`
}
