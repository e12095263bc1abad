package authorization

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrOrgMismatch  = errors.New("token organization does not match path")
	ErrRoleDenied   = errors.New("role is not allowed to perform this action")
)
