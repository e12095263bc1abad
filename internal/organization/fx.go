package organization

import (
	"github.com/smallbiznis/crudforge/internal/organization/repository"
	"github.com/smallbiznis/crudforge/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewMemoryDirectory),
	fx.Provide(service.New),
)
