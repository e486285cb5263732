package points

import (
	"github.com/marketlane/settlo/internal/points/repository"
	"github.com/marketlane/settlo/internal/points/service"
	"go.uber.org/fx"
)

var Module = fx.Module("points.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
