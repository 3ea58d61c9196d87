package schedule

import (
	"github.com/boxlane/boxlane/internal/schedule/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("schedule",
	fx.Provide(repository.Provide),
)
