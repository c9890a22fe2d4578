package telemetry

import (
	"github.com/fieldview/arbiter/internal/telemetry/repository"
	"github.com/fieldview/arbiter/internal/telemetry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("telemetry",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
