package service

import (
	"context"

	"github.com/smallbiznis/crudforge/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Authenticator domain.Authenticator
	Tokens        domain.TokenService
}

type Service struct {
	log           *zap.Logger
	authenticator domain.Authenticator
	tokens        domain.TokenService
}

func New(p Params) domain.Service {
	return &Service{
		log:           p.Log.Named("auth.service"),
		authenticator: p.Authenticator,
		tokens:        p.Tokens,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.Token, error) {
	principal, err := s.authenticator.Authenticate(ctx, req)
	if err != nil {
		return domain.Token{}, err
	}

	token, err := s.tokens.Issue(ctx, principal)
	if err != nil {
		return domain.Token{}, err
	}

	s.log.Info("token issued",
		zap.String("org_id", principal.OrgID),
		zap.String("role", principal.Role),
		zap.String("jti", token.ID),
		zap.Time("expires_at", token.ExpiresAt),
	)
	return token, nil
}

func (s *Service) Verify(ctx context.Context, raw string) (*domain.Claims, error) {
	return s.tokens.Verify(ctx, raw)
}
