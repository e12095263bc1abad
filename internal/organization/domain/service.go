package domain

import (
	"context"
	"errors"
)

type Service interface {
	Generate(ctx context.Context, req GenerateOrganizationRequest) (GenerateOrganizationResponse, error)
	GetByID(ctx context.Context, id string) (Organization, error)
}

type GenerateOrganizationRequest struct {
	Name string
}

// GenerateOrganizationResponse carries a freshly minted API key; repeated
// calls for the same name share the id but never the key.
type GenerateOrganizationResponse struct {
	Organization Organization
	APIKey       string
	Created      bool
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_org_id")
	ErrNotFound    = errors.New("organization_not_found")
)
