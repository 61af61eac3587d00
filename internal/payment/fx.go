package payment

import (
	"github.com/angedjimenou/investapp/internal/config"
	"github.com/angedjimenou/investapp/internal/payment/adapters"
	"github.com/angedjimenou/investapp/internal/payment/adapters/fedapay"
	"github.com/angedjimenou/investapp/internal/payment/repository"
	"github.com/angedjimenou/investapp/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment",
	fx.Provide(
		repository.Provide,
		newRegistry,
		service.NewService,
	),
)

func newRegistry(cfg config.Config, log *zap.Logger) *adapters.Registry {
	registry := adapters.NewRegistry()
	registry.Register(
		fedapay.Provider,
		fedapay.NewClient(cfg.FedaPay, log),
		fedapay.NewWebhookAdapter(cfg.FedaPay.WebhookSecret),
	)
	return registry
}
