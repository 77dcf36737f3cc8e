package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/dto"
	"github.com/prperemyshlev/session-auth/internal/service"
	"go.uber.org/zap"
)

const (
	contextKeyUser   = "user"
	contextKeyUserID = "user_id"
)

// AuthMiddleware resolves the bearer access token to its user and adds it to
// the context
func AuthMiddleware(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Errors: MsgInvalidToken})
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrExpiredToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Errors: MsgExpiredToken})
			case errors.Is(err, domain.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Errors: MsgInvalidToken})
			default:
				logger.Error("Failed to authenticate request", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Errors: MsgInternalError})
			}
			return
		}

		c.Set(contextKeyUser, user)
		c.Set(contextKeyUserID, user.ID)

		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(c *gin.Context) (string, bool) {
	scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func currentUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}
