package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenIssuer = "session-auth"
	tokenTypeAccess   = "access"
	tokenTypeRefresh  = "refresh"
)

// AccessClaims are the claims carried by access and refresh tokens.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// JWTManager manages JWT token operations
type JWTManager struct {
	secret            []byte
	accessTokenExpiry time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:            []byte(secret),
		accessTokenExpiry: accessTokenExpiry,
	}
}

// AccessTokenExpiry returns the lifetime of a token pair.
func (j *JWTManager) AccessTokenExpiry() time.Duration {
	return j.accessTokenExpiry
}

// GenerateAccessToken generates a new access token issued at issuedAt
func (j *JWTManager) GenerateAccessToken(userID string, issuedAt time.Time) (string, error) {
	return j.sign(userID, tokenTypeAccess, issuedAt)
}

// GenerateRefreshToken generates a new refresh token issued at issuedAt
func (j *JWTManager) GenerateRefreshToken(userID string, issuedAt time.Time) (string, error) {
	return j.sign(userID, tokenTypeRefresh, issuedAt)
}

func (j *JWTManager) sign(userID, tokenType string, issuedAt time.Time) (string, error) {
	claims := AccessClaims{
		UserID: userID,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    accessTokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(j.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// ParseAccessToken verifies the signature and type of an access token and returns
// its claims. Expiry is not checked here; the stored token row decides it.
func (j *JWTManager) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.Issuer != accessTokenIssuer || claims.Type != tokenTypeAccess {
		return nil, errors.New("invalid token type")
	}
	if claims.UserID == "" {
		return nil, errors.New("invalid user_id in token")
	}

	return claims, nil
}
