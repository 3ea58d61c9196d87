package carrier

import (
	"github.com/boxlane/boxlane/internal/carrier/adapters"
	"github.com/boxlane/boxlane/internal/carrier/adapters/hapag"
	"github.com/boxlane/boxlane/internal/carrier/adapters/maersk"
	"go.uber.org/fx"
)

var Module = fx.Module("carrier",
	fx.Provide(
		func() *adapters.Registry {
			return adapters.NewRegistry(
				maersk.NewFactory(),
				hapag.NewFactory(),
			)
		},
		NewProvider,
	),
)
