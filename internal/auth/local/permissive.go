// Package local holds authenticators that need no external identity store.
package local

import (
	"context"
	"strings"

	"github.com/smallbiznis/crudforge/internal/auth/domain"
)

// PermissiveAuthenticator accepts any organization and role without checking
// credentials. Anyone can mint a token for any org, including admin tokens.
// Replace it with a real Authenticator before exposing the service.
type PermissiveAuthenticator struct{}

func NewPermissiveAuthenticator() domain.Authenticator {
	return PermissiveAuthenticator{}
}

func (PermissiveAuthenticator) Authenticate(_ context.Context, req domain.LoginRequest) (domain.Principal, error) {
	if strings.TrimSpace(req.OrgID) == "" {
		return domain.Principal{}, domain.ErrInvalidOrganization
	}
	role := req.Role
	if strings.TrimSpace(role) == "" {
		role = domain.DefaultRole
	}
	return domain.Principal{OrgID: req.OrgID, Role: role}, nil
}
