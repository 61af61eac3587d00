package purchase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	accountdomain "github.com/angedjimenou/investapp/internal/account/domain"
	accountrepo "github.com/angedjimenou/investapp/internal/account/repository"
	"github.com/angedjimenou/investapp/internal/events"
	ledgerdomain "github.com/angedjimenou/investapp/internal/ledger/domain"
	ledgerrepo "github.com/angedjimenou/investapp/internal/ledger/repository"
	"github.com/angedjimenou/investapp/internal/referral"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPurchaseTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			phone TEXT NOT NULL DEFAULT '',
			country_code TEXT NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0,
			daily_invest BIGINT NOT NULL DEFAULT 0,
			daily_referral BIGINT NOT NULL DEFAULT 0,
			total_referral_revenue BIGINT NOT NULL DEFAULT 0,
			referrer_id TEXT,
			my_referral_code TEXT NOT NULL DEFAULT '',
			first_investment_done BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS investments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			price BIGINT NOT NULL,
			daily_revenue BIGINT NOT NULL,
			duration_days INTEGER NOT NULL,
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id TEXT PRIMARY KEY,
			uid TEXT NOT NULL,
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			amount BIGINT NOT NULL,
			fee BIGINT NOT NULL DEFAULT 0,
			direction TEXT NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			status TEXT NOT NULL,
			external_ref TEXT,
			refunded BOOLEAN NOT NULL DEFAULT FALSE,
			last_event_at TIMESTAMP,
			details TEXT,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS referral_downlines (
			referrer_id TEXT NOT NULL,
			member_id TEXT NOT NULL,
			total_earned BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (referrer_id, member_id)
		)`,
		`CREATE TABLE IF NOT EXISTS referral_codes (
			code TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS app_events (
			id TEXT PRIMARY KEY,
			uid TEXT,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func newPurchaseService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Accounts:  accountrepo.Provide(),
		Ledger:    ledgerrepo.Provide(),
		Referrals: referral.NewService(referral.Params{DB: db, Log: zap.NewNop()}),
		Outbox:    events.NewOutbox(db, node),
	})
}

func seedAccount(t *testing.T, db *gorm.DB, id string, balance int64, referrerID *string) {
	t.Helper()
	now := time.Now().UTC()
	account := accountdomain.Account{
		ID:             id,
		Balance:        balance,
		ReferrerID:     referrerID,
		MyReferralCode: "CODE" + id,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
}

func getAccount(t *testing.T, db *gorm.DB, id string) accountdomain.Account {
	t.Helper()
	var account accountdomain.Account
	if err := db.Where("id = ?", id).First(&account).Error; err != nil {
		t.Fatalf("load account %s: %v", id, err)
	}
	return account
}

func TestPurchasePaysFirstInvestmentBonus(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := newPurchaseService(t, db)
	ctx := context.Background()

	seedAccount(t, db, "ref", 0, nil)
	refID := "ref"
	seedAccount(t, db, "buyer", 10000, &refID)

	result, err := svc.Purchase(ctx, "buyer", Request{
		ProductID:    "starter",
		Price:        5000,
		DailyRevenue: 200,
		DurationDays: 30,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if result.NewBalance != 5000 {
		t.Fatalf("expected new balance 5000, got %d", result.NewBalance)
	}
	if result.NewDailyRevenue != 200 {
		t.Fatalf("expected daily revenue 200, got %d", result.NewDailyRevenue)
	}

	buyer := getAccount(t, db, "buyer")
	if buyer.Balance != 5000 || !buyer.FirstInvestmentDone {
		t.Fatalf("unexpected buyer state: %+v", buyer)
	}

	// 15% of 5000.
	referrer := getAccount(t, db, "ref")
	if referrer.Balance != 750 {
		t.Fatalf("expected referrer bonus 750, got %d", referrer.Balance)
	}
	if referrer.TotalReferralRevenue != 750 {
		t.Fatalf("expected referral revenue 750, got %d", referrer.TotalReferralRevenue)
	}
	// 1% of 200 rounds to 2.
	if referrer.DailyReferral != 2 {
		t.Fatalf("expected daily referral 2, got %d", referrer.DailyReferral)
	}

	var bonusEntries []ledgerdomain.Entry
	if err := db.Where("uid = ? AND category = ?", "ref", ledgerdomain.CategoryReferral).Find(&bonusEntries).Error; err != nil {
		t.Fatalf("load bonus entries: %v", err)
	}
	if len(bonusEntries) != 1 || bonusEntries[0].Amount != 750 {
		t.Fatalf("unexpected bonus entries: %+v", bonusEntries)
	}
}

func TestPurchaseBonusPaidOnlyOnce(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := newPurchaseService(t, db)
	ctx := context.Background()

	seedAccount(t, db, "ref", 0, nil)
	refID := "ref"
	seedAccount(t, db, "buyer", 20000, &refID)

	req := Request{ProductID: "starter", Price: 5000, DailyRevenue: 200, DurationDays: 30}
	if _, err := svc.Purchase(ctx, "buyer", req); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := svc.Purchase(ctx, "buyer", req); err != nil {
		t.Fatalf("second purchase: %v", err)
	}

	referrer := getAccount(t, db, "ref")
	if referrer.Balance != 750 {
		t.Fatalf("expected a single bonus of 750, got %d", referrer.Balance)
	}
	// The cascade accrues on every purchase.
	if referrer.DailyReferral != 4 {
		t.Fatalf("expected daily referral 4 after two purchases, got %d", referrer.DailyReferral)
	}
}

func TestPurchaseInsufficientFundsLeavesStateUntouched(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := newPurchaseService(t, db)
	ctx := context.Background()

	seedAccount(t, db, "ref", 0, nil)
	refID := "ref"
	seedAccount(t, db, "buyer", 4999, &refID)

	_, err := svc.Purchase(ctx, "buyer", Request{
		ProductID:    "starter",
		Price:        5000,
		DailyRevenue: 200,
		DurationDays: 30,
	})
	if !errors.Is(err, accountdomain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	buyer := getAccount(t, db, "buyer")
	if buyer.Balance != 4999 || buyer.FirstInvestmentDone {
		t.Fatalf("expected untouched buyer, got %+v", buyer)
	}

	var investmentCount, entryCount int64
	if err := db.Table("investments").Count(&investmentCount).Error; err != nil {
		t.Fatalf("count investments: %v", err)
	}
	if err := db.Table("ledger_entries").Count(&entryCount).Error; err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}
	if investmentCount != 0 || entryCount != 0 {
		t.Fatalf("expected no rows written, got %d investments, %d entries", investmentCount, entryCount)
	}
}

func TestPurchaseCascadeStopsAtDepthBound(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := newPurchaseService(t, db)
	ctx := context.Background()

	// a0 <- a1 <- ... <- a6 <- buyer: seven ancestors, only five paid.
	seedAccount(t, db, "a0", 0, nil)
	for i := 1; i <= 6; i++ {
		parent := fmt.Sprintf("a%d", i-1)
		seedAccount(t, db, fmt.Sprintf("a%d", i), 0, &parent)
	}
	direct := "a6"
	seedAccount(t, db, "buyer", 10000, &direct)

	if _, err := svc.Purchase(ctx, "buyer", Request{
		ProductID:    "starter",
		Price:        5000,
		DailyRevenue: 300,
		DurationDays: 30,
	}); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// 1% of 300 rounds to 3, paid to levels 1..5 only.
	for i := 2; i <= 6; i++ {
		ancestor := getAccount(t, db, fmt.Sprintf("a%d", i))
		if ancestor.DailyReferral != 3 {
			t.Fatalf("a%d: expected daily referral 3, got %d", i, ancestor.DailyReferral)
		}
	}
	for _, beyond := range []string{"a0", "a1"} {
		ancestor := getAccount(t, db, beyond)
		if ancestor.DailyReferral != 0 {
			t.Fatalf("%s: expected no accrual beyond the depth bound, got %d", beyond, ancestor.DailyReferral)
		}
	}

	// Only the direct referrer gets the first-investment bonus.
	if bonus := getAccount(t, db, "a6").Balance; bonus != 750 {
		t.Fatalf("expected direct referrer bonus 750, got %d", bonus)
	}
	if other := getAccount(t, db, "a5").Balance; other != 0 {
		t.Fatalf("expected no bonus for level 2, got %d", other)
	}
}

func TestPurchaseValidatesRequest(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := newPurchaseService(t, db)
	ctx := context.Background()
	seedAccount(t, db, "buyer", 10000, nil)

	bad := []Request{
		{ProductID: "", Price: 5000, DailyRevenue: 200, DurationDays: 30},
		{ProductID: "p", Price: 0, DailyRevenue: 200, DurationDays: 30},
		{ProductID: "p", Price: 5000, DailyRevenue: 0, DurationDays: 30},
		{ProductID: "p", Price: 5000, DailyRevenue: 200, DurationDays: 0},
	}
	for i, req := range bad {
		if _, err := svc.Purchase(ctx, "buyer", req); !errors.Is(err, ErrInvalidPurchase) {
			t.Fatalf("request %d: expected ErrInvalidPurchase, got %v", i, err)
		}
	}
}

func TestPurchaseWithVanishedReferrerStillCommits(t *testing.T) {
	db := setupPurchaseTestDB(t)
	svc := newPurchaseService(t, db)
	ctx := context.Background()

	ghost := "ghost"
	seedAccount(t, db, "buyer", 10000, &ghost)

	result, err := svc.Purchase(ctx, "buyer", Request{
		ProductID:    "starter",
		Price:        5000,
		DailyRevenue: 200,
		DurationDays: 30,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if result.NewBalance != 5000 {
		t.Fatalf("expected new balance 5000, got %d", result.NewBalance)
	}

	buyer := getAccount(t, db, "buyer")
	if !buyer.FirstInvestmentDone {
		t.Fatal("expected first_investment_done despite vanished referrer")
	}
}
