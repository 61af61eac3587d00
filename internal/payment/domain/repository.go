package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository stores webhook event records for the idempotency guard.
type Repository interface {
	// InsertEvent writes the record, returning false when the same
	// (provider, event id, event type) was already recorded.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID, eventType string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id string, processedAt time.Time) error
}
