package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/crudforge/internal/clock"
	"github.com/smallbiznis/crudforge/internal/identity"
	"github.com/smallbiznis/crudforge/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Directory domain.Directory
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	directory domain.Directory
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("organization.service"),
		clock:     p.Clock,
		directory: p.Directory,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateOrganizationRequest) (domain.GenerateOrganizationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.GenerateOrganizationResponse{}, domain.ErrInvalidName
	}

	apiKey, err := identity.GenerateAPIKey()
	if err != nil {
		return domain.GenerateOrganizationResponse{}, fmt.Errorf("generate api key: %w", err)
	}

	org, created := s.directory.Put(ctx, domain.Organization{
		ID:        identity.DeriveOrgID(name),
		Name:      name,
		Slug:      identity.Slug(name),
		APIKey:    apiKey,
		CreatedAt: s.clock.Now(),
	})
	if created {
		s.log.Info("organization generated", zap.String("org_id", org.ID), zap.String("slug", org.Slug))
	}

	return domain.GenerateOrganizationResponse{
		Organization: org,
		APIKey:       apiKey,
		Created:      created,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Organization, error) {
	return s.directory.Get(ctx, id)
}
