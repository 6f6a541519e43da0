package consume

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/kafkax"
)

// Consumer is a service's event intake. One reader per subscribed topic; all
// messages for a given aggregate land in one partition, so per-aggregate
// order is preserved while unrelated aggregates process concurrently.
// EventApplier is the single-event processing step. *Applier is the live
// implementation; tests substitute fakes.
type EventApplier interface {
	Apply(ctx context.Context, env event.Envelope) error
}

type Consumer struct {
	applier EventApplier
	dlq     Quarantiner
	logger  *slog.Logger
	brokers []string
	groupID string
	topics  []string
	retry   RetryPolicy
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
	Retry   RetryPolicy
}

// RetryPolicy bounds in-process retries for transient failures before an
// event escalates to the dead-letter store.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = 500 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	return p
}

// Delay returns the sleep before the next attempt (1-based, exponential).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

func New(applier EventApplier, dlq Quarantiner, logger *slog.Logger, cfg Config) *Consumer {
	return &Consumer{
		applier: applier,
		dlq:     dlq,
		logger:  logger,
		brokers: kafkax.SplitBrokers(cfg.Brokers),
		groupID: cfg.GroupID,
		topics:  cfg.Topics,
		retry:   cfg.Retry.normalize(),
	}
}

func (c *Consumer) Run(ctx context.Context) {
	if len(c.brokers) == 0 {
		c.logger.Warn("consumer disabled (no kafka brokers configured)")
		return
	}

	var wg sync.WaitGroup
	for _, topic := range c.topics {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			c.runReader(ctx, topic)
		}(topic)
	}
	wg.Wait()
}

func (c *Consumer) runReader(ctx context.Context, topic string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		GroupID:  c.groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "topic", topic, "err", err)
			time.Sleep(1 * time.Second)
			continue
		}
		// The offset is committed only once the event is settled (applied,
		// absorbed or quarantined). A crash in between means redelivery, not loss.
		if c.process(ctx, msg) {
			if err := reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("offset commit failed", "topic", topic, "err", err)
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "event.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	env, err := event.Unmarshal(msg.Value)
	if err != nil {
		// Undecodable bytes can never be applied; quarantine them under the
		// best identity we have so an operator can inspect the raw payload.
		meta := kafkax.ExtractEventMeta(msg)
		c.logger.Error("undecodable message quarantined", "topic", msg.Topic, "event_id", meta.EventID, "err", err)
		span.RecordError(err)
		return c.quarantineRaw(ctxSpan, meta, msg.Value, err)
	}

	return c.Process(ctxSpan, env)
}

// Process applies one envelope with the configured retry budget, escalating
// to the dead-letter store on exhaustion or on a non-retryable failure.
// It reports whether the event is settled: true means the offset may be
// committed, false (shutdown mid-apply, failed dead-letter write) means the
// offset stays put and the broker redelivers.
func (c *Consumer) Process(ctx context.Context, env event.Envelope) bool {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		err := c.applier.Apply(ctx, env)
		if err == nil {
			return true
		}
		if errors.Is(err, ErrDuplicate) {
			c.logger.Info("duplicate event absorbed", "event_id", env.EventID, "event_type", env.EventType)
			return true
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			// Shutdown mid-apply. Nothing is settled; redelivery finishes the job.
			return false
		}
		if !IsRetryable(err) {
			c.logger.Error("non-retryable failure, dead-lettering",
				"event_id", env.EventID, "event_type", env.EventType,
				"causation_id", env.CausationID, "correlation_id", env.CorrelationID,
				"attempt", attempt, "err", err)
			return c.quarantine(ctx, env, err, attempt)
		}
		lastErr = err
		c.logger.Warn("transient failure, will retry",
			"event_id", env.EventID, "attempt", attempt, "max_attempts", c.retry.MaxAttempts, "err", err)
		if attempt < c.retry.MaxAttempts {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(c.retry.Delay(attempt)):
			}
		}
	}

	c.logger.Error("retry budget exhausted, dead-lettering",
		"event_id", env.EventID, "event_type", env.EventType,
		"causation_id", env.CausationID, "correlation_id", env.CorrelationID,
		"attempts", c.retry.MaxAttempts, "err", lastErr)
	return c.quarantine(ctx, env, lastErr, c.retry.MaxAttempts)
}

func (c *Consumer) quarantine(ctx context.Context, env event.Envelope, cause error, attempts int) bool {
	raw, err := env.Marshal()
	if err != nil {
		raw = env.Payload
	}
	if err := c.dlq.Quarantine(ctx, DeadLetter{
		EventID:      env.EventID.String(),
		EventType:    env.EventType,
		Reason:       cause.Error(),
		RawPayload:   raw,
		AttemptCount: attempts,
	}); err != nil {
		c.logger.Error("dead-letter write failed", "event_id", env.EventID, "err", err)
		return false
	}
	return true
}

func (c *Consumer) quarantineRaw(ctx context.Context, meta kafkax.EventMeta, raw []byte, cause error) bool {
	if err := c.dlq.Quarantine(ctx, DeadLetter{
		EventID:      meta.EventID,
		EventType:    meta.EventType,
		Reason:       cause.Error(),
		RawPayload:   raw,
		AttemptCount: 1,
	}); err != nil {
		c.logger.Error("dead-letter write failed", "event_id", meta.EventID, "err", err)
		return false
	}
	return true
}
