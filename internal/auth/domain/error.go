package domain

import "errors"

var (
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrMissingToken        = errors.New("missing bearer token")
	ErrInvalidOrganization = errors.New("invalid_org_id")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrMissingSecret       = errors.New("AUTH_JWT_SECRET is required in production")
)
