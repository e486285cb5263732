package vendors

import (
	"github.com/marketlane/settlo/internal/cache"
	"github.com/marketlane/settlo/internal/vendors/repository"
	"github.com/marketlane/settlo/internal/vendors/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vendor.service",
	fx.Provide(cache.NewLeaderboardCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
