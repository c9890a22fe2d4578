package entitlement

import (
	"github.com/fieldview/arbiter/internal/entitlement/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement",
	fx.Provide(
		repository.Provide,
	),
)
