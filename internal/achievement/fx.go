package achievement

import (
	"github.com/marketlane/settlo/internal/achievement/repository"
	"github.com/marketlane/settlo/internal/achievement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("achievement.engine",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewEngine),
)
