package routing

import (
	"github.com/boxlane/boxlane/internal/routing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("routing.service",
	fx.Provide(service.New),
)
