package onboarding

import "go.uber.org/fx"

var Module = fx.Module("onboarding.service",
	fx.Provide(NewService),
)
