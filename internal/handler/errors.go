package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/dto"
	"go.uber.org/zap"
)

// Client-facing messages of the session errors.
const (
	MsgIncorrectCredentials = "Incorrect email or password"
	MsgEmailNotConfirmed    = "Email is not confirmed"
	MsgInvalidToken         = "Invalid Token"
	MsgExpiredToken         = "Expired Token"
	MsgUserNotFound         = "User not found"
	MsgInternalError        = "Internal server error"
)

var sessionErrors = []struct {
	err     error
	message string
}{
	{domain.ErrInvalidCredentials, MsgIncorrectCredentials},
	{domain.ErrUnconfirmedEmail, MsgEmailNotConfirmed},
	{domain.ErrInvalidToken, MsgInvalidToken},
	{domain.ErrExpiredToken, MsgExpiredToken},
}

// respondError writes err as a JSON error body. Known domain errors become 422,
// anything else is logged and hidden behind a 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if errs, ok := domain.AsValidationErrors(err); ok {
		c.JSON(http.StatusUnprocessableEntity, dto.ValidationErrorResponse{Errors: errs.FullMessages()})
		return
	}

	for _, known := range sessionErrors {
		if errors.Is(err, known.err) {
			c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Errors: known.message})
			return
		}
	}

	if errors.Is(err, domain.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Errors: MsgUserNotFound})
		return
	}

	logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Errors: MsgInternalError})
}

// bindRequest binds a JSON or form body into req. A malformed body is answered
// with 400.
func bindRequest(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Errors: err.Error()})
		return false
	}
	return true
}
