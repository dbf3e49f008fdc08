package effect

import "go.uber.org/fx"

var Module = fx.Module("effect.resolver",
	fx.Provide(NewResolver),
)
