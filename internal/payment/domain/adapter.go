package domain

import (
	"context"
	"net/http"
)

// ProviderClient issues outbound calls to the payment processor. Calls are
// not retried here: a failed call surfaces to the caller rather than risking
// a duplicate money movement.
type ProviderClient interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	CreatePayout(ctx context.Context, req PayoutRequest) (*Payout, error)
}

// WebhookAdapter authenticates and normalizes inbound provider
// notifications. Verify must run before any state is read or mutated.
type WebhookAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*WebhookEvent, error)
}
