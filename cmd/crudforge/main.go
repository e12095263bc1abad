package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crudforge/internal/auth"
	"github.com/smallbiznis/crudforge/internal/authorization"
	"github.com/smallbiznis/crudforge/internal/clock"
	"github.com/smallbiznis/crudforge/internal/codegen"
	"github.com/smallbiznis/crudforge/internal/config"
	"github.com/smallbiznis/crudforge/internal/migration"
	"github.com/smallbiznis/crudforge/internal/observability"
	"github.com/smallbiznis/crudforge/internal/organization"
	"github.com/smallbiznis/crudforge/internal/ratelimit"
	"github.com/smallbiznis/crudforge/internal/server"
	"github.com/smallbiznis/crudforge/internal/user"
	"github.com/smallbiznis/crudforge/internal/web"
	"github.com/smallbiznis/crudforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Functional Domains
		organization.Module,
		user.Module,
		auth.Module,
		authorization.Module,
		codegen.Module,
		ratelimit.Module,
		web.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
