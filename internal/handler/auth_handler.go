package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/session-auth/internal/dto"
	"github.com/prperemyshlev/session-auth/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles session, account, confirmation and password requests
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// SignIn handles POST /api/sessions/sign_in.
// A user that is already signed in gets its current pair back.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if !bindRequest(c, &req) {
		return
	}

	pair, err := h.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewTokenResponse(pair))
}

// SignOut handles DELETE /api/sessions/sign_out with the access token as bearer.
// Unknown, expired and missing tokens are all answered with Invalid Token.
func (h *AuthHandler) SignOut(c *gin.Context) {
	token, _ := bearerToken(c)

	if err := h.authService.SignOut(c.Request.Context(), token); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Signed out successfully"})
}

// RefreshToken handles PUT /api/sessions/refresh_token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindRequest(c, &req) {
		return
	}

	pair, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTokenResponse(pair))
}

// Register handles POST /api/users.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindRequest(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

// GetMe handles GET /api/users/me.
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.authService.CurrentUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// ChangeEmail handles PUT /api/users/me/email. The new address only becomes
// active once confirmed.
func (h *AuthHandler) ChangeEmail(c *gin.Context) {
	var req dto.ChangeEmailRequest
	if !bindRequest(c, &req) {
		return
	}

	user, err := h.authService.ChangeEmail(c.Request.Context(), currentUserID(c), req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NewUserResponse(user))
}

// ResendConfirmation handles POST /api/confirmations. The answer does not
// depend on whether the email exists.
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	var req dto.EmailRequest
	if !bindRequest(c, &req) {
		return
	}

	if err := h.authService.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.SuccessResponse{Message: "Confirmation instructions sent if the email is registered"})
}

// ConfirmEmail handles PUT /api/confirmations/:token.
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	user, err := h.authService.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// RequestPasswordReset handles POST /api/passwords.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.EmailRequest
	if !bindRequest(c, &req) {
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.SuccessResponse{Message: "Reset instructions sent if the email is registered"})
}

// ResetPassword handles PUT /api/passwords/:token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindRequest(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password updated successfully"})
}
