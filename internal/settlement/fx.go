package settlement

import (
	"github.com/marketlane/settlo/internal/settlement/repository"
	"github.com/marketlane/settlo/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
