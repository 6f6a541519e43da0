package consume

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/event"
)

type scriptedBeginner struct {
	tx *scriptedTx
}

func (b *scriptedBeginner) Begin(context.Context) (pgx.Tx, error) {
	return b.tx, nil
}

// payoutPolicy maps only the payout outcome; the billing account topic also
// carries account lifecycle events this consumer never reacts to.
func payoutPolicy(calls *int) *choreo.Policy {
	return choreo.NewPolicy().On("billing_account", "billing.payout.issued.v1",
		func(context.Context, pgx.Tx, event.Envelope) error {
			*calls++
			return nil
		})
}

func payoutRegistry() *event.Registry {
	r := event.NewRegistry()
	r.Register(event.Schema{EventType: "billing.payout.issued.v1"})
	return r
}

func testApplier(tx *scriptedTx, calls *int) *Applier {
	return NewApplier(&scriptedBeginner{tx: tx}, NewLedger(), payoutRegistry(), payoutPolicy(calls),
		slog.New(slog.DiscardHandler), time.Second)
}

func TestApplyAcksSiblingEventOnSharedTopic(t *testing.T) {
	env, err := event.New("billing_account", "acct-1", "billing.account.opened.v1", 1,
		map[string]any{"account_id": "acct-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tx := &scriptedTx{}
	var calls int
	if err := testApplier(tx, &calls).Apply(context.Background(), env); err != nil {
		t.Fatalf("unmapped sibling event must be acked, got %v", err)
	}
	if calls != 0 {
		t.Fatal("unmapped event must not be dispatched")
	}
	if !tx.committed {
		t.Fatal("ledger entry for the skipped event must be committed")
	}
}

func TestApplyValidatesMappedEvent(t *testing.T) {
	// A mapped type that fails schema validation is terminal.
	var calls int
	policy := choreo.NewPolicy().On("billing_account", "billing.payout.issued.v2",
		func(context.Context, pgx.Tx, event.Envelope) error {
			calls++
			return nil
		})
	applier := NewApplier(&scriptedBeginner{tx: &scriptedTx{}}, NewLedger(), payoutRegistry(), policy,
		slog.New(slog.DiscardHandler), time.Second)

	env, err := event.New("billing_account", "acct-1", "billing.payout.issued.v2", 3,
		map[string]any{"account_id": "acct-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	applyErr := applier.Apply(context.Background(), env)
	var se *event.SchemaError
	if !errors.As(applyErr, &se) || se.Kind != event.UnknownType {
		t.Fatalf("expected unknown-type schema error, got %v", applyErr)
	}
	if calls != 0 {
		t.Fatal("invalid event must not reach the handler")
	}
}

func TestApplyDispatchesMappedEvent(t *testing.T) {
	env, err := event.New("billing_account", "acct-1", "billing.payout.issued.v1", 3,
		map[string]any{"account_id": "acct-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tx := &scriptedTx{rowVersion: 3}
	var calls int
	if err := testApplier(tx, &calls).Apply(context.Background(), env); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one dispatch, got %d", calls)
	}
	if !tx.committed {
		t.Fatal("handler effects must be committed")
	}
}

func TestApplyDuplicateAbsorbedBeforeDispatch(t *testing.T) {
	env, err := event.New("billing_account", "acct-1", "billing.payout.issued.v1", 3,
		map[string]any{"account_id": "acct-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tx := &scriptedTx{execErr: &pgconn.PgError{Code: "23505"}}
	var calls int
	applyErr := testApplier(tx, &calls).Apply(context.Background(), env)
	if !errors.Is(applyErr, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", applyErr)
	}
	if calls != 0 {
		t.Fatal("duplicate must not be dispatched")
	}
	if tx.committed {
		t.Fatal("duplicate attempt must roll back")
	}
}
