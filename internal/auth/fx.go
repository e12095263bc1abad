package auth

import (
	"github.com/smallbiznis/crudforge/internal/auth/local"
	"github.com/smallbiznis/crudforge/internal/auth/service"
	"github.com/smallbiznis/crudforge/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	local.Module,
	fx.Provide(token.New),
	fx.Provide(service.New),
)
