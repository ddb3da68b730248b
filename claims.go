package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimSubject   = "sub"
	ClaimUserID    = "user_id"
	ClaimEmail     = "email"
	ClaimExpiresAt = "exp"
	ClaimIssuedAt  = "iat"
	ClaimTokenID   = "jti"
	ClaimIssuer    = "iss"
)

// AuthClaims represents the structured claims carried by a bearer token
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"user_id,omitempty"`
	UserEmail string `json:"email,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim, the user email
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the string form of the numeric user id
func (c *JWTClaims) UserID() string {
	return c.UID
}

// Email returns the email claim, falling back to the subject
func (c *JWTClaims) Email() string {
	if c.UserEmail != "" {
		return c.UserEmail
	}
	return c.Subject()
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// IdentityClaims builds the claim mapping embedded in tokens for identity
func IdentityClaims(identity Identity) map[string]any {
	return map[string]any{
		ClaimSubject: identity.Email(),
		ClaimUserID:  identity.ID(),
		ClaimEmail:   identity.Email(),
	}
}

// SubjectFromClaims returns the sub claim when it is a non empty string
func SubjectFromClaims(claims map[string]any) (string, bool) {
	raw, ok := claims[ClaimSubject]
	if !ok {
		return "", false
	}
	sub, ok := raw.(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}
