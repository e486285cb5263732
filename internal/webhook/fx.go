package webhook

import (
	"github.com/marketlane/settlo/internal/config"
	"github.com/marketlane/settlo/internal/webhook/adapters"
	"github.com/marketlane/settlo/internal/webhook/domain"
	"github.com/marketlane/settlo/internal/webhook/moneroo"
	"github.com/marketlane/settlo/internal/webhook/repository"
	"github.com/marketlane/settlo/internal/webhook/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhook.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideRegistry),
	fx.Provide(service.NewService),
)

func provideRegistry(cfg config.Config) *adapters.Registry {
	var providers []domain.Adapter
	providers = append(providers, moneroo.NewAdapter(cfg.MonerooWebhookSecret))
	return adapters.NewRegistry(providers...)
}
