package deadletter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/covergrid/covergrid/libs/consume"
	"github.com/covergrid/covergrid/libs/event"
)

// Store is the dead-letter persistence the replayer drives. *Repository is
// the live implementation; tests substitute fakes.
type Store interface {
	Get(ctx context.Context, eventID string) (Entry, error)
	MarkReplayed(ctx context.Context, eventID string) error
}

// Replayer re-injects quarantined events into the normal consumption path.
// Replay goes through the same applier as live consumption, so it hits the
// same ledger and ordering checks: replaying an already-applied event is a
// no-op, and replaying twice applies at most once.
type Replayer struct {
	repo    Store
	applier consume.EventApplier
	logger  *slog.Logger
}

func NewReplayer(repo Store, applier consume.EventApplier, logger *slog.Logger) *Replayer {
	return &Replayer{repo: repo, applier: applier, logger: logger}
}

func (r *Replayer) Replay(ctx context.Context, eventID string) error {
	entry, err := r.repo.Get(ctx, eventID)
	if err != nil {
		return err
	}

	env, err := event.Unmarshal(entry.RawPayload)
	if err != nil {
		return errors.New("stored payload is not a valid envelope: " + err.Error())
	}

	err = r.applier.Apply(ctx, env)
	switch {
	case err == nil:
		r.logger.Info("dead letter replayed", "event_id", eventID, "event_type", entry.EventType)
	case errors.Is(err, consume.ErrDuplicate):
		r.logger.Info("dead letter already applied", "event_id", eventID)
	default:
		return err
	}

	return r.repo.MarkReplayed(ctx, eventID)
}
