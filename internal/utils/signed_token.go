package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/session-auth/internal/domain"
)

const signedTokenIssuer = "session-auth/signed"

// SignedClaims is the payload of a purpose-scoped signed token.
type SignedClaims struct {
	Purpose domain.TokenPurpose `json:"pur"`
	Binding string              `json:"bnd,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the id of the user the token was issued for.
func (c *SignedClaims) UserID() string {
	return c.Subject
}

// SignedTokenCodec produces and verifies tamper-evident, expiring tokens scoped to a
// single purpose. Tokens are stateless: validity is derived from the signature and
// the embedded expiry only.
type SignedTokenCodec struct {
	secret []byte
	ttls   map[domain.TokenPurpose]time.Duration
	now    func() time.Time
}

// NewSignedTokenCodec creates a codec. ttls must carry a positive TTL for every
// purpose the codec is expected to issue.
func NewSignedTokenCodec(secret string, ttls map[domain.TokenPurpose]time.Duration, now func() time.Time) *SignedTokenCodec {
	if now == nil {
		now = time.Now
	}
	return &SignedTokenCodec{
		secret: []byte(secret),
		ttls:   ttls,
		now:    now,
	}
}

// Issue signs a token for userID scoped to purpose. binding is an opaque value
// describing the state the token is valid for; it is stored as a keyed digest.
func (c *SignedTokenCodec) Issue(userID string, purpose domain.TokenPurpose, binding string) (string, error) {
	ttl, ok := c.ttls[purpose]
	if !ok || ttl <= 0 || !purpose.Valid() {
		return "", fmt.Errorf("unsupported token purpose %q", purpose)
	}

	issuedAt := c.now()
	claims := SignedClaims{
		Purpose: purpose,
		Binding: c.digest(purpose, binding),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    signedTokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}
	return token, nil
}

// Verify returns the claims of a well-formed, correctly signed, unexpired token
// issued for expected. Every failure, including malformed input, yields false.
func (c *SignedTokenCodec) Verify(token string, expected domain.TokenPurpose) (*SignedClaims, bool) {
	if token == "" {
		return nil, false
	}

	claims := &SignedClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(signedTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, false
	}

	if claims.Purpose != expected || claims.Subject == "" {
		return nil, false
	}

	return claims, true
}

// BindingMatches reports whether claims were issued for the given binding.
func (c *SignedTokenCodec) BindingMatches(claims *SignedClaims, binding string) bool {
	return hmac.Equal([]byte(claims.Binding), []byte(c.digest(claims.Purpose, binding)))
}

func (c *SignedTokenCodec) digest(purpose domain.TokenPurpose, binding string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(purpose))
	mac.Write([]byte{0})
	mac.Write([]byte(binding))
	return hex.EncodeToString(mac.Sum(nil)[:16])
}
