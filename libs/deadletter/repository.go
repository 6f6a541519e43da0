package deadletter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/consume"
	"github.com/covergrid/covergrid/libs/db"
)

var ErrNotFound = errors.New("dead letter not found")

// Entry is a quarantined event awaiting remediation. Entries are marked
// replayed rather than deleted so the audit history survives.
type Entry struct {
	ID            int64     `json:"id"`
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Reason        string    `json:"reason"`
	RawPayload    []byte    `json:"raw_payload"`
	FirstFailedAt time.Time `json:"first_failed_at"`
	AttemptCount  int       `json:"attempt_count"`
	ReplayedAt    *time.Time `json:"replayed_at,omitempty"`
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Quarantine persists the entry and removes the event from the retry cycle.
// The upsert keeps one row per event id no matter how often the same event
// fails, preserving the original first_failed_at.
func (r *Repository) Quarantine(ctx context.Context, d consume.DeadLetter) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dead_letters (event_id, event_type, reason, raw_payload, attempt_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id)
		DO UPDATE SET reason = EXCLUDED.reason,
		              attempt_count = dead_letters.attempt_count + EXCLUDED.attempt_count,
		              replayed_at = NULL
	`, d.EventID, d.EventType, d.Reason, d.RawPayload, d.AttemptCount)
	return err
}

func (r *Repository) Get(ctx context.Context, eventID string) (Entry, error) {
	var e Entry
	err := r.pool.QueryRow(ctx, `
		SELECT id, event_id, event_type, reason, raw_payload, first_failed_at, attempt_count, replayed_at
		FROM dead_letters
		WHERE event_id = $1
	`, eventID).Scan(&e.ID, &e.EventID, &e.EventType, &e.Reason, &e.RawPayload, &e.FirstFailedAt, &e.AttemptCount, &e.ReplayedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// List returns quarantined entries, newest first. Replayed entries are
// included only when includeReplayed is set.
func (r *Repository) List(ctx context.Context, limit int, includeReplayed bool) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, event_type, reason, raw_payload, first_failed_at, attempt_count, replayed_at
		FROM dead_letters
		WHERE ($2 OR replayed_at IS NULL)
		ORDER BY first_failed_at DESC
		LIMIT $1
	`, limit, includeReplayed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.Reason, &e.RawPayload, &e.FirstFailedAt, &e.AttemptCount, &e.ReplayedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func (r *Repository) MarkReplayed(ctx context.Context, eventID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dead_letters
		SET replayed_at = now()
		WHERE event_id = $1
	`, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ consume.Quarantiner = (*Repository)(nil)
var _ Store = (*Repository)(nil)
