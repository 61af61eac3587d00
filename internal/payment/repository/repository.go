package repository

import (
	"context"
	"errors"
	"time"

	"github.com/angedjimenou/investapp/internal/payment/domain"
	"gorm.io/gorm"
)

type repository struct{}

// Provide builds the gorm-backed payment event repository.
func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.EventRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (id, provider, provider_event_id, event_type, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_event_id, event_type) DO NOTHING`,
		event.ID,
		event.Provider,
		event.ProviderEventID,
		event.EventType,
		event.Payload,
		event.ReceivedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID, eventType string) (*domain.EventRecord, error) {
	var record domain.EventRecord
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ? AND event_type = ?", provider, providerEventID, eventType).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) MarkProcessed(ctx context.Context, db *gorm.DB, id string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events SET processed_at = ? WHERE id = ?`,
		processedAt.UTC(),
		id,
	).Error
}
