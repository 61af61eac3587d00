package adapters

import (
	"strings"

	"github.com/angedjimenou/investapp/internal/payment/domain"
)

// Registry holds the configured provider integrations, keyed by provider
// name.
type Registry struct {
	clients  map[string]domain.ProviderClient
	webhooks map[string]domain.WebhookAdapter
}

func NewRegistry() *Registry {
	return &Registry{
		clients:  make(map[string]domain.ProviderClient),
		webhooks: make(map[string]domain.WebhookAdapter),
	}
}

func (r *Registry) Register(provider string, client domain.ProviderClient, webhook domain.WebhookAdapter) {
	provider = normalize(provider)
	if provider == "" {
		return
	}
	r.clients[provider] = client
	r.webhooks[provider] = webhook
}

func (r *Registry) Client(provider string) (domain.ProviderClient, bool) {
	client, ok := r.clients[normalize(provider)]
	return client, ok
}

func (r *Registry) Webhook(provider string) (domain.WebhookAdapter, bool) {
	webhook, ok := r.webhooks[normalize(provider)]
	return webhook, ok
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
