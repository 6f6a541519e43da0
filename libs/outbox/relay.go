package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/kafkax"
	otelx "github.com/covergrid/covergrid/libs/otel"
)

// Store is the outbox persistence surface the relay drives. *Repository is
// the live implementation; tests substitute fakes.
type Store interface {
	FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error
	MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts int, nextAttemptAt time.Time, reason string) error
}

// MessageWriter is the broker surface the relay publishes through.
// *kafka.Writer is the live implementation.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay polls unpublished outbox rows and publishes them to Kafka.
// Delivery is at-least-once: a row may be republished if the relay dies
// between the broker ack and the published_at update. Downstream ledgers
// absorb the duplicates.
type Relay struct {
	pool      db.TxBeginner
	repo      Store
	logger    *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int
	backoff   Backoff
}

type RelayConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
	Backoff   Backoff
}

// Backoff is the exponential retry schedule for failed publishes.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next returns the delay before the given (1-based) retry attempt.
func (b Backoff) Next(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	max := b.Max
	if max <= 0 {
		max = 5 * time.Minute
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func NewRelay(pool db.TxBeginner, repo Store, logger *slog.Logger, cfg RelayConfig) *Relay {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Relay{
		pool:      pool,
		repo:      repo,
		logger:    logger,
		brokers:   kafkax.SplitBrokers(cfg.Brokers),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		backoff:   cfg.Backoff,
	}
}

func (r *Relay) Run(ctx context.Context) {
	if len(r.brokers) == 0 {
		r.logger.Warn("outbox relay disabled (no kafka brokers configured)")
		return
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  r.brokers,
		Balancer: &kafka.Hash{},
	})
	defer writer.Close()

	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.publishBatch(ctx, writer); err != nil {
				r.logger.Error("outbox relay batch failed", "err", err)
			}
		}
	}
}

func (r *Relay) publishBatch(ctx context.Context, writer MessageWriter) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := r.repo.FetchDue(ctx, tx, r.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return tx.Commit(ctx)
	}

	var published []int64
	for _, rcd := range records {
		msgCtx := otelx.ContextWithTraceContext(ctx, rcd.Traceparent, rcd.Tracestate)
		raw, err := rcd.Envelope.Marshal()
		if err != nil {
			// Unserializable rows can never succeed; park them far in the future.
			r.logger.Error("outbox row not serializable", "id", rcd.ID, "err", err)
			_ = r.repo.MarkFailed(ctx, tx, rcd.ID, rcd.Attempts+1, time.Now().UTC().Add(24*time.Hour), err.Error())
			continue
		}
		msg := kafka.Message{
			Topic:   event.Topic(rcd.Envelope.AggregateType),
			Key:     []byte(rcd.Envelope.AggregateID),
			Value:   raw,
			Headers: kafkax.EnvelopeHeaders(rcd.Envelope),
		}
		msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)

		if err := writer.WriteMessages(ctx, msg); err != nil {
			attempts := rcd.Attempts + 1
			nextAt := time.Now().UTC().Add(r.backoff.Next(attempts))
			r.logger.Error("outbox publish failed", "event_id", rcd.Envelope.EventID,
				"attempts", attempts, "next_attempt_at", nextAt, "err", err)
			if err := r.repo.MarkFailed(ctx, tx, rcd.ID, attempts, nextAt, err.Error()); err != nil {
				return err
			}
			continue
		}
		published = append(published, rcd.ID)
	}

	if err := r.repo.MarkPublished(ctx, tx, published); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
