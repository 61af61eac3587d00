package events

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEventsTestDB(t *testing.T) *gorm.DB {
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

	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS app_events (
			id TEXT PRIMARY KEY,
			uid TEXT,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT UNIQUE,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create app_events: %v", err)
	}
	return db
}

func newTestOutbox(t *testing.T, db *gorm.DB) *Outbox {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewOutbox(db, node)
}

type captureSink struct {
	delivered []OutboxRecord
	failAfter int
}

func (s *captureSink) Deliver(_ context.Context, record OutboxRecord) error {
	if s.failAfter > 0 && len(s.delivered) >= s.failAfter {
		return errors.New("sink_unavailable")
	}
	s.delivered = append(s.delivered, record)
	return nil
}

func pendingCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Raw(`SELECT COUNT(*) FROM app_events WHERE published = FALSE`).Scan(&n).Error; err != nil {
		t.Fatalf("count pending: %v", err)
	}
	return n
}

func TestRelayDrainsInOrderAndMarksPublished(t *testing.T) {
	db := setupEventsTestDB(t)
	outbox := newTestOutbox(t, db)
	ctx := context.Background()

	for _, evt := range []Event{
		{UID: "u1", Type: EventDepositCompleted, DedupeKey: "deposit:1"},
		{UID: "u1", Type: EventWithdrawalSettled, DedupeKey: "withdrawal:1"},
	} {
		if err := outbox.Publish(ctx, evt); err != nil {
			t.Fatalf("publish %s: %v", evt.Type, err)
		}
	}

	sink := &captureSink{}
	relay := NewRelay(db, zap.NewNop(), sink)
	if err := relay.DrainOnce(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if len(sink.delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(sink.delivered))
	}
	if sink.delivered[0].EventType != EventDepositCompleted || sink.delivered[1].EventType != EventWithdrawalSettled {
		t.Fatalf("unexpected delivery order: %+v", sink.delivered)
	}
	if n := pendingCount(t, db); n != 0 {
		t.Fatalf("expected all rows published, %d still pending", n)
	}

	// A second pass finds nothing; delivery happens once.
	if err := relay.DrainOnce(ctx); err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if len(sink.delivered) != 2 {
		t.Fatalf("expected no further deliveries, got %d", len(sink.delivered))
	}
}

func TestRelayLeavesRowPendingOnSinkFailure(t *testing.T) {
	db := setupEventsTestDB(t)
	outbox := newTestOutbox(t, db)
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		if err := outbox.Publish(ctx, Event{UID: "u1", Type: EventInvestmentPurchased, DedupeKey: key}); err != nil {
			t.Fatalf("publish %s: %v", key, err)
		}
	}

	sink := &captureSink{failAfter: 1}
	relay := NewRelay(db, zap.NewNop(), sink)
	if err := relay.DrainOnce(ctx); err == nil {
		t.Fatal("expected sink error to surface")
	}
	if n := pendingCount(t, db); n != 1 {
		t.Fatalf("expected the failed row to stay pending, got %d", n)
	}

	// Once the sink recovers, the pending row is retried.
	sink.failAfter = 0
	if err := relay.DrainOnce(ctx); err != nil {
		t.Fatalf("retry drain: %v", err)
	}
	if n := pendingCount(t, db); n != 0 {
		t.Fatalf("expected retry to publish the row, %d still pending", n)
	}
}
