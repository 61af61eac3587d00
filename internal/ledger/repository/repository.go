package repository

import (
	"context"
	"errors"
	"time"

	"github.com/angedjimenou/investapp/internal/ledger/domain"
	"gorm.io/gorm"
)

type repository struct{}

// Provide builds the gorm-backed ledger repository.
func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, entry *domain.Entry) error {
	if err := domain.Validate(entry); err != nil {
		return err
	}
	if entry.Status == "" {
		entry.Status = domain.StatusPending
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *repository) Find(ctx context.Context, db *gorm.DB, id string) (*domain.Entry, error) {
	var entry domain.Entry
	err := db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) Transition(ctx context.Context, tx *gorm.DB, id string, to domain.EntryStatus, eventAt time.Time) (bool, error) {
	if !to.Terminal() {
		return false, domain.ErrInvalidEntry
	}
	var completedAt any
	if to == domain.StatusCompleted {
		completedAt = time.Now().UTC()
	}
	result := tx.WithContext(ctx).Exec(
		`UPDATE ledger_entries
		 SET status = ?, last_event_at = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		eventAt.UTC(),
		completedAt,
		id,
		domain.StatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkRefunded(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	result := tx.WithContext(ctx).Exec(
		`UPDATE ledger_entries
		 SET refunded = TRUE
		 WHERE id = ? AND refunded = FALSE`,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) TouchLastEvent(ctx context.Context, tx *gorm.DB, id string, eventAt time.Time) (bool, error) {
	result := tx.WithContext(ctx).Exec(
		`UPDATE ledger_entries
		 SET last_event_at = ?
		 WHERE id = ? AND (last_event_at IS NULL OR last_event_at < ?)`,
		eventAt.UTC(),
		id,
		eventAt.UTC(),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
