package events

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OutboxRecord is one stored event as the relay reads it back.
type OutboxRecord struct {
	ID        string
	UID       string
	EventType string
	Payload   datatypes.JSON
	CreatedAt time.Time
}

// Sink receives drained events. A delivery error leaves the row unpublished
// so the next pass retries it.
type Sink interface {
	Deliver(ctx context.Context, record OutboxRecord) error
}

// LogSink emits drained events to the application log. It stands in until a
// broker or notification fan-out is attached.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) Sink {
	return &LogSink{log: log.Named("events.sink")}
}

func (s *LogSink) Deliver(_ context.Context, record OutboxRecord) error {
	s.log.Info("event delivered",
		zap.String("event_id", record.ID),
		zap.String("uid", record.UID),
		zap.String("event_type", record.EventType),
	)
	return nil
}

// Relay drains unpublished app_events rows in order and flips the published
// flag once the sink accepts each one.
type Relay struct {
	db        *gorm.DB
	log       *zap.Logger
	sink      Sink
	interval  time.Duration
	batchSize int
}

func NewRelay(db *gorm.DB, log *zap.Logger, sink Sink) *Relay {
	return &Relay{
		db:        db,
		log:       log.Named("events.relay"),
		sink:      sink,
		interval:  5 * time.Second,
		batchSize: 100,
	}
}

// Run polls until the context is canceled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.log.Warn("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// DrainOnce delivers one batch of pending events. Delivery order follows
// insertion order; a failing event stops the batch so ordering holds.
func (r *Relay) DrainOnce(ctx context.Context) error {
	var records []OutboxRecord
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, uid, event_type, payload, created_at
		 FROM app_events
		 WHERE published = FALSE
		 ORDER BY created_at, id
		 LIMIT ?`,
		r.batchSize,
	).Scan(&records).Error
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := r.sink.Deliver(ctx, record); err != nil {
			return err
		}
		err := r.db.WithContext(ctx).Exec(
			`UPDATE app_events SET published = TRUE WHERE id = ? AND published = FALSE`,
			record.ID,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// RunRelay attaches the relay to the application lifecycle.
func RunRelay(lc fx.Lifecycle, relay *Relay) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				relay.Run(ctx)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}
