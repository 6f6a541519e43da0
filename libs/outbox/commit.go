package outbox

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/db"
	"github.com/covergrid/covergrid/libs/event"
)

// Commit runs mutate and writes the events it returns to the outbox as one
// local transaction. On success both the state change and the pending events
// are durable; on error neither is. mutate computes the events inside the
// transaction so per-aggregate versions are assigned under the row lock.
func Commit(ctx context.Context, pool *db.Pool, repo *Repository, mutate func(pgx.Tx) ([]event.Envelope, error)) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	events, err := mutate(tx)
	if err != nil {
		return err
	}
	for _, env := range events {
		if err := repo.Insert(ctx, tx, env); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
