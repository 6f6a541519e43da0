package consume

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ledger is the per-service record of processed events. The ledger entry and
// the command's effects always commit in the same transaction, which is what
// makes redelivery safe: a duplicate hits the unique event_id and the whole
// attempt rolls back as a no-op.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Record inserts the processed-event entry. Returns ErrDuplicate when the
// event id has already been committed by a previous delivery.
func (l *Ledger) Record(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO processed_events (event_id)
		VALUES ($1)
	`, eventID)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return Transient("ledger insert", err)
}

// Advance enforces per-aggregate ordering: the stored version only moves
// forward. An event whose version is not greater than the last applied one is
// reported as a duplicate rather than applied, per the ordering contract.
// Gaps are legal (not every aggregate mutation emits a consumed event).
func (l *Ledger) Advance(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID string, version int64) error {
	var applied int64
	err := tx.QueryRow(ctx, `
		INSERT INTO aggregate_progress (aggregate_type, aggregate_id, version)
		VALUES ($1, $2, $3)
		ON CONFLICT (aggregate_type, aggregate_id)
		DO UPDATE SET version = EXCLUDED.version, updated_at = now()
		WHERE aggregate_progress.version < EXCLUDED.version
		RETURNING version
	`, aggregateType, aggregateID, version).Scan(&applied)
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicate
	}
	return Transient("progress advance", err)
}
