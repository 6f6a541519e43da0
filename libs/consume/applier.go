package consume

import (
	"context"
	"log/slog"
	"time"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
)

// Applier executes one event against the local database: schema validation,
// dedup ledger, ordering guard and policy dispatch, all inside a single
// transaction with a bounded execution budget. It is shared by the live
// consumer and the dead-letter replay path so both go through identical
// idempotency checks.
type Applier struct {
	pool     db.TxBeginner
	ledger   *Ledger
	registry *event.Registry
	policy   *choreo.Policy
	logger   *slog.Logger
	budget   time.Duration
}

func NewApplier(pool db.TxBeginner, ledger *Ledger, registry *event.Registry, policy *choreo.Policy, logger *slog.Logger, budget time.Duration) *Applier {
	if budget <= 0 {
		budget = 30 * time.Second
	}
	return &Applier{
		pool:     pool,
		ledger:   ledger,
		registry: registry,
		policy:   policy,
		logger:   logger,
		budget:   budget,
	}
}

// Apply processes one envelope. Returns nil on success and on clean skips
// (unmapped event). Returns ErrDuplicate when the ledger or ordering guard
// absorbed the event. Any other error is classified by IsRetryable.
func (a *Applier) Apply(ctx context.Context, env event.Envelope) error {
	// Shared topics carry sibling event types this service never reacts to.
	// Only mapped types are schema-checked; unmapped ones are acked with their
	// ledger entry committed so a later redelivery stays a no-op.
	mapped := a.policy.Handles(env.AggregateType, env.EventType)
	if mapped {
		if err := a.registry.Validate(env); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, a.budget)
	defer cancel()

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return Transient("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := a.ledger.Record(ctx, tx, env.EventID); err != nil {
		return err
	}
	if err := a.ledger.Advance(ctx, tx, env.AggregateType, env.AggregateID, env.Version); err != nil {
		return err
	}

	if mapped {
		if _, err := a.policy.Dispatch(ctx, tx, env); err != nil {
			return err
		}
	} else {
		a.logger.Debug("event not mapped, skipping", "event_type", env.EventType, "event_id", env.EventID)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transient("commit", err)
	}
	return nil
}
