package domain

import "time"

// EntryStatus is the reconciliation state of a ledger entry. pending is the
// only non-terminal state.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusCompleted EntryStatus = "completed"
	StatusDeclined  EntryStatus = "declined"
	StatusCanceled  EntryStatus = "canceled"
	StatusFailed    EntryStatus = "failed"
	// StatusError flags entries that need operator attention, e.g. a webhook
	// reporting an amount that does not match the recorded one.
	StatusError EntryStatus = "error"
)

// Terminal reports whether no further transition is allowed from s.
func (s EntryStatus) Terminal() bool {
	return s != StatusPending
}

type EntryDirection string

const (
	DirectionCredit EntryDirection = "credit"
	DirectionDebit  EntryDirection = "debit"
)

type EntryType string

const (
	TypeInternal EntryType = "internal"
	TypeExternal EntryType = "external"
)

type EntryCategory string

const (
	CategoryInvestment EntryCategory = "investment"
	CategoryReferral   EntryCategory = "referral"
	CategoryDeposit    EntryCategory = "deposit"
	CategoryWithdrawal EntryCategory = "withdrawal"
)

// Entry is one real-world money movement and its reconciliation status.
// External movements are keyed by the payment processor's transaction or
// payout id so webhook lookup is a primary-key read; internal movements use
// generated ids.
type Entry struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	UID         string         `gorm:"not null;index" json:"uid"`
	Type        EntryType      `gorm:"type:text;not null" json:"type"`
	Category    EntryCategory  `gorm:"type:text;not null" json:"category"`
	Amount      int64          `gorm:"not null" json:"amount"`
	Fee         int64          `gorm:"not null;default:0" json:"fee"`
	Direction   EntryDirection `gorm:"type:text;not null" json:"direction"`
	Source      string         `gorm:"type:text;not null" json:"source"`
	Target      string         `gorm:"type:text;not null" json:"target"`
	Status      EntryStatus    `gorm:"type:text;not null;index" json:"status"`
	ExternalRef string         `gorm:"type:text;index" json:"externalRef,omitempty"`
	// Refunded flips exactly once, when a failed withdrawal's debit has been
	// compensated. Guards the re-credit against webhook replays.
	Refunded    bool       `gorm:"not null;default:false" json:"refunded"`
	LastEventAt *time.Time `json:"lastEventAt,omitempty"`
	Details     string     `gorm:"type:text" json:"details"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger_entries" }
