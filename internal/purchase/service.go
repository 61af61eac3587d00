package purchase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	accountdomain "github.com/angedjimenou/investapp/internal/account/domain"
	"github.com/angedjimenou/investapp/internal/events"
	investmentdomain "github.com/angedjimenou/investapp/internal/investment/domain"
	ledgerdomain "github.com/angedjimenou/investapp/internal/ledger/domain"
	"github.com/angedjimenou/investapp/internal/referral"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// FirstInvestBonusRate is paid to the direct referrer on a member's
	// first purchase.
	FirstInvestBonusRate = 0.15
	// DailyCascadeRate is added to dailyReferral for every ancestor in the
	// chain, per purchase.
	DailyCascadeRate = 0.01
)

var ErrInvalidPurchase = errors.New("invalid_purchase_request")

type Request struct {
	ProductID    string
	Price        int64
	DailyRevenue int64
	DurationDays int
}

type Result struct {
	InvestmentID    string
	NewBalance      int64
	NewDailyRevenue int64
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Accounts  accountdomain.Repository
	Ledger    ledgerdomain.Repository
	Referrals *referral.Service
	Outbox    *events.Outbox
}

// Service executes investment purchases: the debit, the investment record,
// the ledger entries and the referral payouts land in one transaction or not
// at all.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	accounts  accountdomain.Repository
	ledger    ledgerdomain.Repository
	referrals *referral.Service
	outbox    *events.Outbox
}

func NewService(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("purchase.service"),
		genID:     p.GenID,
		accounts:  p.Accounts,
		ledger:    p.Ledger,
		referrals: p.Referrals,
		outbox:    p.Outbox,
	}
}

func (s *Service) Purchase(ctx context.Context, uid string, req Request) (*Result, error) {
	if uid == "" || req.ProductID == "" || req.Price <= 0 || req.DailyRevenue <= 0 || req.DurationDays <= 0 {
		return nil, ErrInvalidPurchase
	}

	// The chain is immutable once the accounts exist, so it is resolved
	// outside the transaction to keep the transaction read set small.
	chain, err := s.referrals.ResolveChain(ctx, uid)
	if err != nil {
		return nil, err
	}

	var result Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.accounts.Get(ctx, tx, uid)
		if err != nil {
			return err
		}

		if err := s.accounts.ApplyBalanceDelta(ctx, tx, uid, -req.Price); err != nil {
			return err
		}
		if err := s.accounts.IncrementDailyInvest(ctx, tx, uid, req.DailyRevenue); err != nil {
			return err
		}

		now := time.Now().UTC()
		investmentID := s.genID.Generate().String()
		investment := investmentdomain.Investment{
			ID:           investmentID,
			UserID:       uid,
			ProductID:    req.ProductID,
			Price:        req.Price,
			DailyRevenue: req.DailyRevenue,
			DurationDays: req.DurationDays,
			StartDate:    now,
			EndDate:      now.AddDate(0, 0, req.DurationDays),
			Status:       investmentdomain.StatusActive,
			CreatedAt:    now,
		}
		if err := tx.WithContext(ctx).Create(&investment).Error; err != nil {
			return err
		}

		completedAt := now
		if err := s.ledger.Insert(ctx, tx, &ledgerdomain.Entry{
			ID:          s.genID.Generate().String(),
			UID:         uid,
			Type:        ledgerdomain.TypeInternal,
			Category:    ledgerdomain.CategoryInvestment,
			Amount:      req.Price,
			Direction:   ledgerdomain.DirectionDebit,
			Source:      "balance",
			Target:      "investment",
			Status:      ledgerdomain.StatusCompleted,
			Details:     fmt.Sprintf("purchase %s", req.ProductID),
			CreatedAt:   now,
			CompletedAt: &completedAt,
		}); err != nil {
			return err
		}

		if !user.FirstInvestmentDone && user.ReferrerID != nil {
			if err := s.payFirstInvestmentBonus(ctx, tx, user, req.Price, now); err != nil {
				return err
			}
		}

		if err := s.payDailyCascade(ctx, tx, chain, req.DailyRevenue); err != nil {
			return err
		}

		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			UID:       uid,
			Type:      events.EventInvestmentPurchased,
			DedupeKey: "purchase:" + investmentID,
			Payload: map[string]any{
				"investment_id": investmentID,
				"product_id":    req.ProductID,
				"price":         req.Price,
			},
		}); err != nil {
			return err
		}

		result = Result{
			InvestmentID:    investmentID,
			NewBalance:      user.Balance - req.Price,
			NewDailyRevenue: user.DailyInvest + req.DailyRevenue,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("purchase committed",
		zap.String("uid", uid),
		zap.String("product_id", req.ProductID),
		zap.Int64("price", req.Price),
	)
	return &result, nil
}

// payFirstInvestmentBonus credits the direct referrer 15% of the price,
// exactly once per account, and flips firstInvestmentDone.
func (s *Service) payFirstInvestmentBonus(
	ctx context.Context,
	tx *gorm.DB,
	user *accountdomain.Account,
	price int64,
	now time.Time,
) error {
	bonus := roundRate(price, FirstInvestBonusRate)
	referrerID := *user.ReferrerID

	if bonus > 0 {
		if err := s.accounts.ApplyBalanceDelta(ctx, tx, referrerID, bonus); err != nil {
			// A vanished referrer must not sink the purchase; the bonus is
			// simply not paid.
			if errors.Is(err, accountdomain.ErrNotFound) {
				return s.accounts.MarkFirstInvestmentDone(ctx, tx, user.ID)
			}
			return err
		}
		if err := s.accounts.IncrementReferralRevenue(ctx, tx, referrerID, bonus); err != nil {
			return err
		}
		if err := s.referrals.AddEarnings(ctx, tx, referrerID, user.ID, bonus); err != nil {
			return err
		}
		completedAt := now
		if err := s.ledger.Insert(ctx, tx, &ledgerdomain.Entry{
			ID:          s.genID.Generate().String(),
			UID:         referrerID,
			Type:        ledgerdomain.TypeInternal,
			Category:    ledgerdomain.CategoryReferral,
			Amount:      bonus,
			Direction:   ledgerdomain.DirectionCredit,
			Source:      "referral_first_invest",
			Target:      "balance",
			Status:      ledgerdomain.StatusCompleted,
			Details:     fmt.Sprintf("first investment bonus from %s", user.ID),
			CreatedAt:   now,
			CompletedAt: &completedAt,
		}); err != nil {
			return err
		}
	}

	return s.accounts.MarkFirstInvestmentDone(ctx, tx, user.ID)
}

// payDailyCascade adds 1% of the product's daily revenue to every ancestor's
// daily referral accrual, skipping entirely when the rounded increment is
// zero.
func (s *Service) payDailyCascade(ctx context.Context, tx *gorm.DB, chain []referral.Referrer, dailyRevenue int64) error {
	increase := roundRate(dailyRevenue, DailyCascadeRate)
	if increase <= 0 {
		return nil
	}
	for _, ancestor := range chain {
		if err := s.accounts.IncrementDailyReferral(ctx, tx, ancestor.UID, increase); err != nil {
			if errors.Is(err, accountdomain.ErrNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}

func roundRate(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate))
}
