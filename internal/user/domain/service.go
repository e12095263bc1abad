package domain

import (
	"context"
	"errors"
)

type CreateUserRequest struct {
	OrgID   string
	Payload UserPayload
}

type GetUserRequest struct {
	OrgID     string
	OrgUserID string
}

type UpdateUserRequest struct {
	OrgID     string
	OrgUserID string
	Payload   UserPayload
}

type DeleteUserRequest struct {
	OrgID     string
	OrgUserID string
}

type Service interface {
	Create(context.Context, CreateUserRequest) (User, error)
	Get(context.Context, GetUserRequest) (User, error)
	Update(context.Context, UpdateUserRequest) (User, error)
	Delete(context.Context, DeleteUserRequest) error
}

var (
	ErrNotFound            = errors.New("user_not_found")
	ErrConflict            = errors.New("user_already_exists")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidUserID       = errors.New("invalid_org_user_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidValidTill    = errors.New("invalid_valid_till")
	ErrInvalidCreatedDate  = errors.New("invalid_created_date")
	ErrOrgMismatch         = errors.New("org_id_mismatch")
	ErrUserIDMismatch      = errors.New("org_user_id_mismatch")
)
