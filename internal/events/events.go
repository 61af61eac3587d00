package events

// Event types emitted to the outbox for downstream consumers (statements,
// notification fan-out, daily accrual rollups).
const (
	EventAccountRegistered   = "account.registered"
	EventInvestmentPurchased = "investment.purchased"
	EventDepositCompleted    = "deposit.completed"
	EventWithdrawalSettled   = "withdrawal.settled"
	EventWithdrawalRefunded  = "withdrawal.refunded"
)
