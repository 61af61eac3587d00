package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository is the account store. Every balance mutation goes through
// ApplyBalanceDelta inside an enclosing transaction; plain read-then-write
// updates of the balance are not part of the contract.
type Repository interface {
	Get(ctx context.Context, db *gorm.DB, id string) (*Account, error)
	Create(ctx context.Context, tx *gorm.DB, account *Account) error

	// ApplyBalanceDelta atomically adds delta to the balance, guarded so the
	// result can never go negative. A violation returns ErrInsufficientFunds
	// and writes nothing, failing the enclosing transaction.
	ApplyBalanceDelta(ctx context.Context, tx *gorm.DB, id string, delta int64) error

	IncrementDailyInvest(ctx context.Context, tx *gorm.DB, id string, amount int64) error
	IncrementDailyReferral(ctx context.Context, tx *gorm.DB, id string, amount int64) error
	IncrementReferralRevenue(ctx context.Context, tx *gorm.DB, id string, amount int64) error
	MarkFirstInvestmentDone(ctx context.Context, tx *gorm.DB, id string) error

	ListPaymentMethods(ctx context.Context, db *gorm.DB, userID string) ([]PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, db *gorm.DB, userID string, methodID string) (*PaymentMethod, error)
	AddPaymentMethod(ctx context.Context, db *gorm.DB, method *PaymentMethod) error
}

var (
	ErrNotFound           = errors.New("account_not_found")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrMethodNotFound     = errors.New("payment_method_not_found")
	ErrMethodLimitReached = errors.New("payment_method_limit_reached")
)
