package consume

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// scriptedTx stands in for a live transaction: Exec and QueryRow return the
// scripted outcomes so the ledger's error classification can be exercised
// without Postgres. Unused pgx.Tx methods panic via the embedded nil.
type scriptedTx struct {
	pgx.Tx
	execErr    error
	rowScanErr error
	rowVersion int64
	execCount  int
	committed  bool
	rolledBack bool
}

func (t *scriptedTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	t.execCount++
	return pgconn.CommandTag{}, t.execErr
}

func (t *scriptedTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return scriptedRow{err: t.rowScanErr, version: t.rowVersion}
}

func (t *scriptedTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *scriptedTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type scriptedRow struct {
	err     error
	version int64
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 1 {
		if p, ok := dest[0].(*int64); ok {
			*p = r.version
		}
	}
	return nil
}

func TestLedgerRecordFirstDelivery(t *testing.T) {
	tx := &scriptedTx{}
	if err := NewLedger().Record(context.Background(), tx, uuid.New()); err != nil {
		t.Fatalf("first delivery must record cleanly, got %v", err)
	}
}

func TestLedgerRecordRedeliveryIsDuplicate(t *testing.T) {
	tx := &scriptedTx{execErr: &pgconn.PgError{Code: "23505"}}
	err := NewLedger().Record(context.Background(), tx, uuid.New())
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("redelivered event id must be reported as duplicate, got %v", err)
	}
}

func TestLedgerRecordInfraFailureIsTransient(t *testing.T) {
	tx := &scriptedTx{execErr: errors.New("connection reset")}
	err := NewLedger().Record(context.Background(), tx, uuid.New())
	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("infrastructure failure must be transient, got %v", err)
	}
}

func TestLedgerAdvanceMovesForward(t *testing.T) {
	tx := &scriptedTx{rowVersion: 4}
	if err := NewLedger().Advance(context.Background(), tx, "claim", "c-1", 4); err != nil {
		t.Fatalf("a newer version must advance, got %v", err)
	}
}

func TestLedgerAdvanceStaleVersionIsDuplicate(t *testing.T) {
	// The guarded upsert returns no row when the incoming version is not
	// greater than the last applied one; that delivery must be absorbed.
	tx := &scriptedTx{rowScanErr: pgx.ErrNoRows}
	err := NewLedger().Advance(context.Background(), tx, "claim", "c-1", 2)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("stale version must be reported as duplicate, got %v", err)
	}
}

func TestLedgerAdvanceInfraFailureIsTransient(t *testing.T) {
	tx := &scriptedTx{rowScanErr: errors.New("connection reset")}
	err := NewLedger().Advance(context.Background(), tx, "claim", "c-1", 2)
	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("infrastructure failure must be transient, got %v", err)
	}
}
