package codegen

import "go.uber.org/fx"

var Module = fx.Module("codegen",
	fx.Provide(New),
)
