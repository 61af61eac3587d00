package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository writes and transitions ledger entries. Status transitions are
// expressed as guarded updates so that a transition out of pending happens at
// most once no matter how often a webhook is replayed.
type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, entry *Entry) error
	Find(ctx context.Context, db *gorm.DB, id string) (*Entry, error)

	// Transition moves the entry from pending to a terminal status and stamps
	// the event time. It returns false (and writes nothing) when the entry is
	// no longer pending.
	Transition(ctx context.Context, tx *gorm.DB, id string, to EntryStatus, eventAt time.Time) (bool, error)

	// MarkRefunded sets the refunded flag, returning false if it was already
	// set.
	MarkRefunded(ctx context.Context, tx *gorm.DB, id string) (bool, error)

	// TouchLastEvent records the latest applied provider event timestamp.
	// Returns false when eventAt is not strictly newer than the stored one.
	TouchLastEvent(ctx context.Context, tx *gorm.DB, id string, eventAt time.Time) (bool, error)
}

var (
	ErrEntryNotFound  = errors.New("ledger_entry_not_found")
	ErrInvalidEntry   = errors.New("invalid_ledger_entry")
	ErrInvalidAmount  = errors.New("invalid_ledger_amount")
	ErrAmountMismatch = errors.New("ledger_amount_mismatch")
)

// Validate checks structural invariants before an entry is inserted.
func Validate(entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	if entry.ID == "" || entry.UID == "" {
		return ErrInvalidEntry
	}
	if entry.Amount <= 0 || entry.Fee < 0 {
		return ErrInvalidAmount
	}
	switch entry.Direction {
	case DirectionCredit, DirectionDebit:
	default:
		return ErrInvalidEntry
	}
	switch entry.Type {
	case TypeInternal, TypeExternal:
	default:
		return ErrInvalidEntry
	}
	switch entry.Category {
	case CategoryInvestment, CategoryReferral, CategoryDeposit, CategoryWithdrawal:
	default:
		return ErrInvalidEntry
	}
	return nil
}
