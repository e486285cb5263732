package notify

import (
	"github.com/marketlane/settlo/internal/notify/repository"
	"github.com/marketlane/settlo/internal/notify/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notify.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
