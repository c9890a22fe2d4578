package refund

import (
	"github.com/fieldview/arbiter/internal/refund/repository"
	"github.com/fieldview/arbiter/internal/refund/service"
	"go.uber.org/fx"
)

var Module = fx.Module("refund",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
