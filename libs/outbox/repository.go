package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
	otelx "github.com/covergrid/covergrid/libs/otel"
)

// Repository persists pending domain events in the service's own database.
// Insert always runs inside the caller's transaction so a business state
// change and its event are committed both-or-neither.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, version, occurred_at, payload, causation_id, correlation_id, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, env.EventID, env.AggregateType, env.AggregateID, env.EventType, env.Version, env.OccurredAt, env.Payload, env.CausationID, env.CorrelationID, traceparent, tracestate)
	return err
}

// Record is one outbox row as stored, including relay bookkeeping.
type Record struct {
	ID          int64
	Envelope    event.Envelope
	Traceparent string
	Tracestate  string
	Attempts    int
	CreatedAt   time.Time
}

// FetchDue returns unpublished rows whose backoff window has elapsed, locked
// for this relay instance. Creation order is preserved within the batch.
func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, version, occurred_at, payload, causation_id, correlation_id, traceparent, tracestate, attempts, created_at
		FROM outbox_events
		WHERE published_at IS NULL AND next_attempt_at <= now()
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.Envelope.EventID, &rcd.Envelope.AggregateType, &rcd.Envelope.AggregateID,
			&rcd.Envelope.EventType, &rcd.Envelope.Version, &rcd.Envelope.OccurredAt, &rcd.Envelope.Payload,
			&rcd.Envelope.CausationID, &rcd.Envelope.CorrelationID, &rcd.Traceparent, &rcd.Tracestate,
			&rcd.Attempts, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// MarkPublished is called only after a positive broker acknowledgment.
// Rows are kept (with published_at set) rather than deleted, for audit.
func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts int, nextAttemptAt time.Time, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET attempts = $2, next_attempt_at = $3, last_error = $4
		WHERE id = $1
	`, id, attempts, nextAttemptAt, reason)
	return err
}

var _ Store = (*Repository)(nil)
