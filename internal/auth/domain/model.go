package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin   = "admin"
	RoleUser    = "user"
	DefaultRole = RoleUser

	TokenTypeBearer = "bearer"
)

// Principal is who a token speaks for.
type Principal struct {
	OrgID string
	Role  string
}

// Claims is the signed token body.
type Claims struct {
	OrgID string `json:"org_id"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ID          string    `json:"-"`
	// Principal is what the token was issued for.
	Principal Principal `json:"-"`
}
