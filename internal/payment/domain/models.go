package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Kind separates the two provider resources we reconcile against.
type Kind string

const (
	KindCharge Kind = "charge" // inbound money, deposit path
	KindPayout Kind = "payout" // outbound money, withdrawal path
)

// WebhookEvent is a provider notification normalized by an adapter.
type WebhookEvent struct {
	Provider        string
	ProviderEventID string
	// Type is the raw provider event name, e.g. "transaction.approved".
	Type     string
	Kind     Kind
	EntityID string
	// Status is the provider's status string; Succeeded tells whether it is
	// the terminal success.
	Status    string
	Succeeded bool
	Amount    int64
	UID       string
	OccurredAt time.Time
}

// EventRecord is the stored copy of a webhook delivery. The unique key over
// (provider, provider_event_id, event_type) is the central idempotency guard
// every webhook consults before any balance is touched.
type EventRecord struct {
	ID              string         `gorm:"primaryKey"`
	Provider        string         `gorm:"type:text;not null;uniqueIndex:ux_payment_events_dedupe,priority:1"`
	ProviderEventID string         `gorm:"type:text;not null;uniqueIndex:ux_payment_events_dedupe,priority:2"`
	EventType       string         `gorm:"type:text;not null;uniqueIndex:ux_payment_events_dedupe,priority:3"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt      time.Time      `gorm:"not null"`
	ProcessedAt     *time.Time
}

// TableName sets the database table name.
func (EventRecord) TableName() string { return "payment_events" }

// ChargeRequest asks the provider to collect money from a customer.
type ChargeRequest struct {
	Amount      int64
	Description string
	Customer    Customer
}

// Charge is a created provider transaction awaiting customer approval.
type Charge struct {
	ID           string
	Reference    string
	Status       string
	PaymentToken string
}

// PayoutRequest asks the provider to send money to a customer.
type PayoutRequest struct {
	Amount      int64
	Description string
	Customer    Customer
}

// Payout is a created provider disbursement awaiting settlement.
type Payout struct {
	ID     string
	Status string
}

// Customer carries the mobile-money destination identity.
type Customer struct {
	FirstName   string
	LastName    string
	Phone       string
	CountryCode string
	UserID      string
}
