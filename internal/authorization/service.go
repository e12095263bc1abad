package authorization

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	authdomain "github.com/smallbiznis/crudforge/internal/auth/domain"
	"github.com/smallbiznis/crudforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Auth     authdomain.Service
}

// Service builds the check chain for an access mode.
type Service struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	verifier Verifier
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		verifier: p.Auth,
	}
}

// ChecksFor returns the chain guarding object/action under mode.
func (s *Service) ChecksFor(mode config.AccessMode, object, action string) (Check, error) {
	switch mode {
	case config.AccessOpen:
		return Chain(), nil
	case config.AccessToken:
		return Chain(RequireToken(s.verifier), RequireOrgMatch()), nil
	case config.AccessRole:
		return Chain(RequireToken(s.verifier), RequireOrgMatch(), RequireRole(s.enforcer, object, action)), nil
	default:
		return nil, fmt.Errorf("unknown access mode %q", mode)
	}
}

// Authorize evaluates mode against req. On success req.Claims holds the
// verified claims, or nil for open routes.
func (s *Service) Authorize(ctx context.Context, mode config.AccessMode, object, action string, req *Request) error {
	check, err := s.ChecksFor(mode, object, action)
	if err != nil {
		return err
	}
	if err := check(ctx, req); err != nil {
		s.log.Debug("access denied",
			zap.String("mode", string(mode)),
			zap.String("object", object),
			zap.String("action", action),
			zap.String("path_org_id", req.PathOrgID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
