package deadletter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/covergrid/covergrid/libs/consume"
	"github.com/covergrid/covergrid/libs/event"
)

type memStore struct {
	entries  map[string]Entry
	replayed []string
}

func (s *memStore) Get(_ context.Context, eventID string) (Entry, error) {
	e, ok := s.entries[eventID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *memStore) MarkReplayed(_ context.Context, eventID string) error {
	s.replayed = append(s.replayed, eventID)
	return nil
}

type scriptedApplier struct {
	results []error
	calls   int
}

func (a *scriptedApplier) Apply(context.Context, event.Envelope) error {
	if a.calls < len(a.results) {
		err := a.results[a.calls]
		a.calls++
		return err
	}
	a.calls++
	return nil
}

func quarantinedEnvelope(t *testing.T) (event.Envelope, Entry) {
	t.Helper()
	env, err := event.New("claim", "c-1", "claim.approved.v1", 3, map[string]any{"claim_id": "c-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return env, Entry{EventID: env.EventID.String(), EventType: env.EventType, RawPayload: raw}
}

func testReplayer(store *memStore, applier *scriptedApplier) *Replayer {
	return NewReplayer(store, applier, slog.New(slog.DiscardHandler))
}

func TestReplayTwiceAppliesOnce(t *testing.T) {
	env, entry := quarantinedEnvelope(t)
	store := &memStore{entries: map[string]Entry{entry.EventID: entry}}
	// First replay lands; the second hits the processed-event ledger.
	applier := &scriptedApplier{results: []error{nil, consume.ErrDuplicate}}
	r := testReplayer(store, applier)

	if err := r.Replay(context.Background(), env.EventID.String()); err != nil {
		t.Fatalf("first replay: %v", err)
	}
	if err := r.Replay(context.Background(), env.EventID.String()); err != nil {
		t.Fatalf("second replay must absorb the duplicate, got %v", err)
	}
	if applier.calls != 2 {
		t.Fatalf("expected 2 apply attempts, got %d", applier.calls)
	}
	if len(store.replayed) != 2 {
		t.Fatalf("both replays must mark the entry, got %v", store.replayed)
	}
}

func TestReplayFailureKeepsEntryActive(t *testing.T) {
	env, entry := quarantinedEnvelope(t)
	store := &memStore{entries: map[string]Entry{entry.EventID: entry}}
	applier := &scriptedApplier{results: []error{errors.New("handler still broken")}}

	if err := testReplayer(store, applier).Replay(context.Background(), env.EventID.String()); err == nil {
		t.Fatal("failed replay must surface the error")
	}
	if len(store.replayed) != 0 {
		t.Fatal("failed replay must not mark the entry replayed")
	}
}

func TestReplayUnknownEvent(t *testing.T) {
	store := &memStore{entries: map[string]Entry{}}
	err := testReplayer(store, &scriptedApplier{}).Replay(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplayCorruptPayload(t *testing.T) {
	entry := Entry{EventID: "bad", EventType: "claim.approved.v1", RawPayload: []byte("not json")}
	store := &memStore{entries: map[string]Entry{"bad": entry}}
	applier := &scriptedApplier{}

	if err := testReplayer(store, applier).Replay(context.Background(), "bad"); err == nil {
		t.Fatal("corrupt payload must surface an error")
	}
	if applier.calls != 0 {
		t.Fatal("corrupt payload must not reach the applier")
	}
	if len(store.replayed) != 0 {
		t.Fatal("corrupt entry must stay active")
	}
}
