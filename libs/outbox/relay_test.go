package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"

	"github.com/covergrid/covergrid/libs/event"
)

type relayTx struct {
	pgx.Tx
	committed bool
}

func (t *relayTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *relayTx) Rollback(context.Context) error { return nil }

type relayBeginner struct {
	tx *relayTx
}

func (b *relayBeginner) Begin(context.Context) (pgx.Tx, error) {
	return b.tx, nil
}

type failedMark struct {
	attempts int
	nextAt   time.Time
	reason   string
}

type memOutbox struct {
	due       []Record
	published []int64
	failed    map[int64]failedMark
}

func (s *memOutbox) FetchDue(context.Context, pgx.Tx, int) ([]Record, error) {
	return s.due, nil
}

func (s *memOutbox) MarkPublished(_ context.Context, _ pgx.Tx, ids []int64) error {
	s.published = append(s.published, ids...)
	return nil
}

func (s *memOutbox) MarkFailed(_ context.Context, _ pgx.Tx, id int64, attempts int, nextAt time.Time, reason string) error {
	if s.failed == nil {
		s.failed = map[int64]failedMark{}
	}
	s.failed[id] = failedMark{attempts: attempts, nextAt: nextAt, reason: reason}
	return nil
}

// scriptedWriter refuses messages keyed by failKey, simulating a broker that
// acks some aggregates' messages and not others.
type scriptedWriter struct {
	failKey string
	wrote   []kafka.Message
}

func (w *scriptedWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		if string(m.Key) == w.failKey {
			return errors.New("broker unavailable")
		}
	}
	w.wrote = append(w.wrote, msgs...)
	return nil
}

func outboxRecord(t *testing.T, id int64, aggregateID string, attempts int) Record {
	t.Helper()
	env, err := event.New("policy", aggregateID, "policy.issued.v1", 2,
		map[string]any{"policy_id": aggregateID})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return Record{ID: id, Envelope: env, Attempts: attempts}
}

func testRelay(store *memOutbox, tx *relayTx) *Relay {
	return NewRelay(&relayBeginner{tx: tx}, store, slog.New(slog.DiscardHandler), RelayConfig{
		Backoff: Backoff{Base: time.Second, Max: time.Minute},
	})
}

func TestPublishBatchSettlesEachRow(t *testing.T) {
	store := &memOutbox{due: []Record{
		outboxRecord(t, 1, "p-1", 0),
		outboxRecord(t, 2, "p-2", 2),
		outboxRecord(t, 3, "p-3", 0),
	}}
	tx := &relayTx{}
	w := &scriptedWriter{failKey: "p-2"}

	if err := testRelay(store, tx).publishBatch(context.Background(), w); err != nil {
		t.Fatalf("publishBatch: %v", err)
	}
	if !tx.committed {
		t.Fatal("batch must commit its bookkeeping")
	}
	if len(store.published) != 2 || store.published[0] != 1 || store.published[1] != 3 {
		t.Fatalf("expected rows 1 and 3 published, got %v", store.published)
	}

	mark, ok := store.failed[2]
	if !ok {
		t.Fatal("refused row must be marked failed")
	}
	if mark.attempts != 3 {
		t.Fatalf("expected attempt count 3, got %d", mark.attempts)
	}
	if mark.reason == "" {
		t.Fatal("failure reason must be recorded")
	}
	want := Backoff{Base: time.Second, Max: time.Minute}.Next(3)
	if until := time.Until(mark.nextAt); until <= 0 || until > want {
		t.Fatalf("next attempt must follow the backoff schedule, got %s (want <= %s)", until, want)
	}

	for _, m := range w.wrote {
		if m.Topic != "policy.events" {
			t.Fatalf("message routed to %q, want policy.events", m.Topic)
		}
		if len(m.Key) == 0 {
			t.Fatal("message must be keyed by aggregate id")
		}
	}
}

func TestPublishBatchParksUnserializableRow(t *testing.T) {
	rec := outboxRecord(t, 7, "p-7", 0)
	rec.Envelope.Payload = []byte("{")
	store := &memOutbox{due: []Record{rec}}
	tx := &relayTx{}
	w := &scriptedWriter{}

	if err := testRelay(store, tx).publishBatch(context.Background(), w); err != nil {
		t.Fatalf("publishBatch: %v", err)
	}
	if len(store.published) != 0 {
		t.Fatalf("unserializable row must not be published, got %v", store.published)
	}
	if len(w.wrote) != 0 {
		t.Fatal("nothing should reach the broker")
	}
	mark, ok := store.failed[7]
	if !ok {
		t.Fatal("unserializable row must be marked failed")
	}
	if until := time.Until(mark.nextAt); until < time.Hour {
		t.Fatalf("unserializable row must be parked well into the future, got %s", until)
	}
}

func TestBackoffSchedule(t *testing.T) {
	b := Backoff{Base: time.Second, Max: time.Minute}

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second, // capped
		60 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(i + 1); got != w {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}
}

func TestBackoffDefaults(t *testing.T) {
	var b Backoff
	if got := b.Next(1); got != time.Second {
		t.Fatalf("expected 1s default base, got %s", got)
	}
	if got := b.Next(30); got != 5*time.Minute {
		t.Fatalf("expected 5m default cap, got %s", got)
	}
}
