package fedapay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/angedjimenou/investapp/internal/payment/domain"
)

const SignatureHeader = "X-Fedapay-Signature"

// WebhookAdapter authenticates FedaPay webhook deliveries and normalizes
// them into WebhookEvents.
type WebhookAdapter struct {
	secret []byte
}

func NewWebhookAdapter(secret string) *WebhookAdapter {
	return &WebhookAdapter{secret: []byte(secret)}
}

// Verify checks the HMAC-SHA256 signature over the raw payload with a
// constant-time compare.
func (a *WebhookAdapter) Verify(_ context.Context, payload []byte, headers http.Header) error {
	if len(a.secret) == 0 {
		return domain.ErrInvalidSignature
	}
	signature := strings.TrimSpace(headers.Get(SignatureHeader))
	if signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type webhookEnvelope struct {
	Name   string `json:"name"`
	Entity struct {
		ID        json.Number    `json:"id"`
		Status    string         `json:"status"`
		Amount    int64          `json:"amount"`
		Metadata  map[string]any `json:"metadata"`
		UpdatedAt string         `json:"updated_at"`
	} `json:"entity"`
}

// Parse maps the provider envelope to a normalized event. Non-terminal
// statuses are reported as ErrEventIgnored so the caller can acknowledge
// without touching state.
func (a *WebhookAdapter) Parse(_ context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	entityID := envelope.Entity.ID.String()
	if entityID == "" || entityID == "0" {
		return nil, domain.ErrInvalidEvent
	}

	var kind domain.Kind
	switch {
	case strings.HasPrefix(envelope.Name, "transaction."):
		kind = domain.KindCharge
	case strings.HasPrefix(envelope.Name, "payout."):
		kind = domain.KindPayout
	default:
		return nil, domain.ErrEventIgnored
	}

	status := strings.ToLower(strings.TrimSpace(envelope.Entity.Status))
	succeeded, terminal := classify(kind, status)
	if !terminal {
		return nil, domain.ErrEventIgnored
	}

	occurredAt := time.Now().UTC()
	if envelope.Entity.UpdatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, envelope.Entity.UpdatedAt); err == nil {
			occurredAt = parsed.UTC()
		}
	}

	uid := ""
	if envelope.Entity.Metadata != nil {
		if value, ok := envelope.Entity.Metadata["user_id"].(string); ok {
			uid = value
		}
	}

	return &domain.WebhookEvent{
		Provider:        Provider,
		ProviderEventID: entityID,
		Type:            envelope.Name,
		Kind:            kind,
		EntityID:        entityID,
		Status:          status,
		Succeeded:       succeeded,
		Amount:          envelope.Entity.Amount,
		UID:             uid,
		OccurredAt:      occurredAt,
	}, nil
}

func classify(kind domain.Kind, status string) (succeeded bool, terminal bool) {
	switch kind {
	case domain.KindCharge:
		switch status {
		case "approved":
			return true, true
		case "declined", "canceled", "failed":
			return false, true
		}
	case domain.KindPayout:
		switch status {
		case "sent", "transferred":
			return true, true
		case "failed", "declined", "canceled":
			return false, true
		}
	}
	return false, false
}
