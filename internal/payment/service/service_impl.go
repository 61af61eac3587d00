package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	accountdomain "github.com/angedjimenou/investapp/internal/account/domain"
	"github.com/angedjimenou/investapp/internal/config"
	"github.com/angedjimenou/investapp/internal/events"
	ledgerdomain "github.com/angedjimenou/investapp/internal/ledger/domain"
	"github.com/angedjimenou/investapp/internal/observability/metrics"
	"github.com/angedjimenou/investapp/internal/payment/adapters"
	"github.com/angedjimenou/investapp/internal/payment/adapters/fedapay"
	paymentdomain "github.com/angedjimenou/investapp/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Cfg      config.Config
	Accounts accountdomain.Repository
	Ledger   ledgerdomain.Repository
	Repo     paymentdomain.Repository
	Registry *adapters.Registry
	Outbox   *events.Outbox
	Metrics  *metrics.HTTPMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	accounts accountdomain.Repository
	ledger   ledgerdomain.Repository
	repo     paymentdomain.Repository
	registry *adapters.Registry
	outbox   *events.Outbox
	metrics  *metrics.HTTPMetrics

	defaultProvider   string
	withdrawalMinimum int64
	feePercent        int
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:                p.DB,
		log:               p.Log.Named("payment.service"),
		genID:             p.GenID,
		accounts:          p.Accounts,
		ledger:            p.Ledger,
		repo:              p.Repo,
		registry:          p.Registry,
		outbox:            p.Outbox,
		metrics:           p.Metrics,
		defaultProvider:   fedapay.Provider,
		withdrawalMinimum: p.Cfg.WithdrawalMinimum,
		feePercent:        p.Cfg.WithdrawalFeePercent,
	}
}

// Deposit creates a provider charge and records the pending ledger entry,
// keyed by the provider's transaction id so the webhook can find it.
func (s *Service) Deposit(ctx context.Context, uid string, req paymentdomain.DepositRequest) (*paymentdomain.DepositResult, error) {
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	client, ok := s.registry.Client(s.defaultProvider)
	if !ok {
		return nil, paymentdomain.ErrProviderNotFound
	}

	user, err := s.accounts.Get(ctx, s.db, uid)
	if err != nil {
		return nil, err
	}
	method, err := s.accounts.GetPaymentMethod(ctx, s.db, uid, req.MethodID)
	if err != nil {
		return nil, err
	}

	charge, err := client.CreateCharge(ctx, paymentdomain.ChargeRequest{
		Amount:      req.Amount,
		Description: fmt.Sprintf("Deposit for %s", uid),
		Customer: paymentdomain.Customer{
			FirstName:   method.FirstName,
			LastName:    method.LastName,
			Phone:       method.Phone,
			CountryCode: user.CountryCode,
			UserID:      uid,
		},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := ledgerdomain.Entry{
		ID:          charge.ID,
		UID:         uid,
		Type:        ledgerdomain.TypeExternal,
		Category:    ledgerdomain.CategoryDeposit,
		Amount:      req.Amount,
		Direction:   ledgerdomain.DirectionCredit,
		Source:      s.defaultProvider,
		Target:      "balance",
		Status:      ledgerdomain.StatusPending,
		ExternalRef: charge.ID,
		Details:     fmt.Sprintf("deposit via %s (%s)", method.Operator, method.Nickname),
		CreatedAt:   now,
	}
	if err := s.ledger.Insert(ctx, s.db, &entry); err != nil {
		return nil, err
	}

	s.log.Info("deposit initiated",
		zap.String("uid", uid),
		zap.String("transaction_id", charge.ID),
		zap.Int64("amount", req.Amount),
	)
	return &paymentdomain.DepositResult{
		TransactionID: charge.ID,
		PaymentToken:  charge.PaymentToken,
	}, nil
}

// Withdraw validates the gates, asks the provider for a payout first, and
// only then debits the balance and records the pending entry in one
// transaction. If the payout call cannot be confirmed, nothing is debited.
func (s *Service) Withdraw(ctx context.Context, uid string, req paymentdomain.WithdrawRequest) (*paymentdomain.WithdrawResult, error) {
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	if req.Amount < s.withdrawalMinimum {
		return nil, paymentdomain.ErrWithdrawalBelowMinimum
	}
	client, ok := s.registry.Client(s.defaultProvider)
	if !ok {
		return nil, paymentdomain.ErrProviderNotFound
	}

	user, err := s.accounts.Get(ctx, s.db, uid)
	if err != nil {
		return nil, err
	}
	if !user.FirstInvestmentDone {
		return nil, paymentdomain.ErrFirstInvestmentRequired
	}
	if user.Balance < req.Amount {
		return nil, accountdomain.ErrInsufficientFunds
	}
	method, err := s.accounts.GetPaymentMethod(ctx, s.db, uid, req.MethodID)
	if err != nil {
		return nil, err
	}

	fee := int64(math.Round(float64(req.Amount) * float64(s.feePercent) / 100))
	net := req.Amount - fee

	payout, err := client.CreatePayout(ctx, paymentdomain.PayoutRequest{
		Amount:      net,
		Description: fmt.Sprintf("Withdrawal for %s", uid),
		Customer: paymentdomain.Customer{
			FirstName:   method.FirstName,
			LastName:    method.LastName,
			Phone:       method.Phone,
			CountryCode: user.CountryCode,
			UserID:      uid,
		},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var newBalance int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.accounts.ApplyBalanceDelta(ctx, tx, uid, -req.Amount); err != nil {
			return err
		}
		fresh, err := s.accounts.Get(ctx, tx, uid)
		if err != nil {
			return err
		}
		newBalance = fresh.Balance

		return s.ledger.Insert(ctx, tx, &ledgerdomain.Entry{
			ID:          payout.ID,
			UID:         uid,
			Type:        ledgerdomain.TypeExternal,
			Category:    ledgerdomain.CategoryWithdrawal,
			Amount:      req.Amount,
			Fee:         fee,
			Direction:   ledgerdomain.DirectionDebit,
			Source:      "balance",
			Target:      s.defaultProvider,
			Status:      ledgerdomain.StatusPending,
			ExternalRef: payout.ID,
			Details:     fmt.Sprintf("withdrawal via %s (%s)", method.Operator, method.Nickname),
			CreatedAt:   now,
		})
	})
	if err != nil {
		// The payout was issued but the debit did not commit. The webhook
		// for this payout id will find no ledger entry and alert.
		s.log.Error("payout issued but debit transaction failed",
			zap.String("uid", uid),
			zap.String("payout_id", payout.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("withdrawal initiated",
		zap.String("uid", uid),
		zap.String("payout_id", payout.ID),
		zap.Int64("amount", req.Amount),
		zap.Int64("fee", fee),
	)
	return &paymentdomain.WithdrawResult{
		PayoutID:   payout.ID,
		Fee:        fee,
		NetAmount:  net,
		NewBalance: newBalance,
	}, nil
}

// IngestWebhook authenticates, deduplicates and reconciles one provider
// notification against the ledger and the account balance.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	webhook, ok := s.registry.Webhook(provider)
	if !ok {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	if err := webhook.Verify(ctx, payload, headers); err != nil {
		s.recordOutcome(provider, "bad_signature")
		return err
	}

	event, err := webhook.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.recordOutcome(provider, "ignored")
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	record := paymentdomain.EventRecord{
		ID:              s.genID.Generate().String(),
		Provider:        provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, &record)
	if err != nil {
		return err
	}
	stored := &record
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, provider, event.ProviderEventID, event.Type)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.recordOutcome(provider, "duplicate")
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.reconcile(ctx, event); err != nil {
		if errors.Is(err, paymentdomain.ErrStaleEvent) {
			s.recordOutcome(provider, "stale")
		} else {
			s.recordOutcome(provider, "error")
			return err
		}
	} else {
		s.recordOutcome(provider, "applied")
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, time.Now().UTC())
}

func (s *Service) reconcile(ctx context.Context, event *paymentdomain.WebhookEvent) error {
	entry, err := s.ledger.Find(ctx, s.db, event.EntityID)
	if err != nil {
		if errors.Is(err, ledgerdomain.ErrEntryNotFound) {
			s.log.Warn("webhook for unknown ledger entry",
				zap.String("provider", event.Provider),
				zap.String("entity_id", event.EntityID),
				zap.String("event_type", event.Type),
			)
		}
		return err
	}

	if entry.LastEventAt != nil && !event.OccurredAt.After(*entry.LastEventAt) {
		return paymentdomain.ErrStaleEvent
	}

	if event.Amount != 0 && event.Amount != expectedAmount(entry) {
		return s.quarantine(ctx, entry, event)
	}

	switch entry.Category {
	case ledgerdomain.CategoryDeposit:
		return s.settleDeposit(ctx, entry, event)
	case ledgerdomain.CategoryWithdrawal:
		return s.settleWithdrawal(ctx, entry, event)
	default:
		return paymentdomain.ErrInvalidEvent
	}
}

// settleDeposit credits the balance exactly once: the pending->completed
// transition and the credit commit together, and the transition can only
// happen once.
func (s *Service) settleDeposit(ctx context.Context, entry *ledgerdomain.Entry, event *paymentdomain.WebhookEvent) error {
	if event.Succeeded {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			transitioned, err := s.ledger.Transition(ctx, tx, entry.ID, ledgerdomain.StatusCompleted, event.OccurredAt)
			if err != nil {
				return err
			}
			if !transitioned {
				_, err := s.ledger.TouchLastEvent(ctx, tx, entry.ID, event.OccurredAt)
				return err
			}
			if err := s.accounts.ApplyBalanceDelta(ctx, tx, entry.UID, entry.Amount); err != nil {
				return err
			}
			return s.outbox.PublishTx(ctx, tx, events.Event{
				UID:       entry.UID,
				Type:      events.EventDepositCompleted,
				DedupeKey: "deposit:" + entry.ID,
				Payload:   map[string]any{"entry_id": entry.ID, "amount": entry.Amount},
			})
		})
	}

	_, err := s.ledger.Transition(ctx, s.db, entry.ID, failureStatus(event.Status), event.OccurredAt)
	return err
}

// settleWithdrawal completes on success (the debit already happened at
// initiation) and re-credits exactly once on terminal failure, guarded by
// the refunded flag.
func (s *Service) settleWithdrawal(ctx context.Context, entry *ledgerdomain.Entry, event *paymentdomain.WebhookEvent) error {
	if event.Succeeded {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			transitioned, err := s.ledger.Transition(ctx, tx, entry.ID, ledgerdomain.StatusCompleted, event.OccurredAt)
			if err != nil {
				return err
			}
			if !transitioned {
				_, err := s.ledger.TouchLastEvent(ctx, tx, entry.ID, event.OccurredAt)
				return err
			}
			return s.outbox.PublishTx(ctx, tx, events.Event{
				UID:       entry.UID,
				Type:      events.EventWithdrawalSettled,
				DedupeKey: "withdrawal:" + entry.ID,
				Payload:   map[string]any{"entry_id": entry.ID, "amount": entry.Amount, "fee": entry.Fee},
			})
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transitioned, err := s.ledger.Transition(ctx, tx, entry.ID, failureStatus(event.Status), event.OccurredAt)
		if err != nil {
			return err
		}
		if !transitioned {
			_, err := s.ledger.TouchLastEvent(ctx, tx, entry.ID, event.OccurredAt)
			return err
		}
		refunded, err := s.ledger.MarkRefunded(ctx, tx, entry.ID)
		if err != nil {
			return err
		}
		if !refunded {
			return nil
		}
		if err := s.accounts.ApplyBalanceDelta(ctx, tx, entry.UID, entry.Amount); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			UID:       entry.UID,
			Type:      events.EventWithdrawalRefunded,
			DedupeKey: "refund:" + entry.ID,
			Payload:   map[string]any{"entry_id": entry.ID, "amount": entry.Amount},
		})
	})
}

// expectedAmount is what the provider reports for an entry: deposits move the
// gross, but a payout is issued for the amount net of the withdrawal fee, so
// that is the figure its webhooks carry.
func expectedAmount(entry *ledgerdomain.Entry) int64 {
	if entry.Category == ledgerdomain.CategoryWithdrawal {
		return entry.Amount - entry.Fee
	}
	return entry.Amount
}

// quarantine parks an entry whose webhook-reported amount does not match the
// recorded one. No balance change; an operator resolves it.
func (s *Service) quarantine(ctx context.Context, entry *ledgerdomain.Entry, event *paymentdomain.WebhookEvent) error {
	s.log.Error("webhook amount mismatch",
		zap.String("entry_id", entry.ID),
		zap.Int64("expected", expectedAmount(entry)),
		zap.Int64("reported", event.Amount),
	)
	if _, err := s.ledger.Transition(ctx, s.db, entry.ID, ledgerdomain.StatusError, event.OccurredAt); err != nil {
		return err
	}
	return ledgerdomain.ErrAmountMismatch
}

func failureStatus(providerStatus string) ledgerdomain.EntryStatus {
	switch providerStatus {
	case "declined":
		return ledgerdomain.StatusDeclined
	case "canceled":
		return ledgerdomain.StatusCanceled
	default:
		return ledgerdomain.StatusFailed
	}
}

func (s *Service) recordOutcome(provider, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhook(provider, outcome)
	}
}
