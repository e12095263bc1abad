package domain

import "context"

type LoginRequest struct {
	OrgID string
	Role  string
}

// Authenticator decides whether a login request may receive a token.
type Authenticator interface {
	Authenticate(ctx context.Context, req LoginRequest) (Principal, error)
}

// TokenService signs and verifies access tokens.
type TokenService interface {
	Issue(ctx context.Context, p Principal) (Token, error)
	Verify(ctx context.Context, raw string) (*Claims, error)
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (Token, error)
	Verify(ctx context.Context, raw string) (*Claims, error)
}
