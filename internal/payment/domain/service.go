package domain

import (
	"context"
	"errors"
	"net/http"
)

type DepositRequest struct {
	Amount   int64
	MethodID string
}

type DepositResult struct {
	TransactionID string
	PaymentToken  string
}

type WithdrawRequest struct {
	Amount   int64
	MethodID string
}

type WithdrawResult struct {
	PayoutID   string
	Fee        int64
	NetAmount  int64
	NewBalance int64
}

// Service is the payment gateway adapter: deposit and withdrawal initiation
// plus webhook-driven reconciliation.
type Service interface {
	Deposit(ctx context.Context, uid string, req DepositRequest) (*DepositResult, error)
	Withdraw(ctx context.Context, uid string, req WithdrawRequest) (*WithdrawResult, error)
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

var (
	ErrInvalidProvider         = errors.New("invalid_provider")
	ErrProviderNotFound        = errors.New("provider_not_found")
	ErrInvalidSignature        = errors.New("invalid_signature")
	ErrInvalidPayload          = errors.New("invalid_payload")
	ErrInvalidEvent            = errors.New("invalid_event")
	ErrEventIgnored            = errors.New("event_ignored")
	ErrEventAlreadyProcessed   = errors.New("event_already_processed")
	ErrStaleEvent              = errors.New("stale_event")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrWithdrawalBelowMinimum  = errors.New("withdrawal_below_minimum")
	ErrFirstInvestmentRequired = errors.New("first_investment_required")
	ErrProviderUnavailable     = errors.New("provider_unavailable")
)
