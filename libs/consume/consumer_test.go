package consume

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/event"
)

type scriptedApplier struct {
	results []error
	calls   int
}

func (a *scriptedApplier) Apply(_ context.Context, _ event.Envelope) error {
	if a.calls < len(a.results) {
		err := a.results[a.calls]
		a.calls++
		return err
	}
	a.calls++
	return nil
}

type memQuarantine struct {
	entries []DeadLetter
}

func (q *memQuarantine) Quarantine(_ context.Context, d DeadLetter) error {
	q.entries = append(q.entries, d)
	return nil
}

type failingQuarantine struct{}

func (failingQuarantine) Quarantine(context.Context, DeadLetter) error {
	return errors.New("dead-letter store down")
}

func testConsumer(applier EventApplier, q Quarantiner) *Consumer {
	return New(applier, q, slog.New(slog.DiscardHandler), Config{
		Retry: RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
	})
}

func testEnvelope(t *testing.T) event.Envelope {
	t.Helper()
	env, err := event.New("claim", "c-1", "claim.approved.v1", 3, map[string]any{"claim_id": "c-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return env
}

func TestProcessSuccessFirstAttempt(t *testing.T) {
	a := &scriptedApplier{results: []error{nil}}
	q := &memQuarantine{}
	if !testConsumer(a, q).Process(context.Background(), testEnvelope(t)) {
		t.Fatal("applied event must be settled")
	}
	if a.calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", a.calls)
	}
	if len(q.entries) != 0 {
		t.Fatalf("nothing should be dead-lettered: %v", q.entries)
	}
}

func TestProcessDuplicateIsAbsorbed(t *testing.T) {
	a := &scriptedApplier{results: []error{ErrDuplicate}}
	q := &memQuarantine{}
	if !testConsumer(a, q).Process(context.Background(), testEnvelope(t)) {
		t.Fatal("duplicate must be settled")
	}
	if a.calls != 1 {
		t.Fatalf("duplicate must not be retried, got %d attempts", a.calls)
	}
	if len(q.entries) != 0 {
		t.Fatal("duplicate must not be dead-lettered")
	}
}

func TestProcessTransientRetriesThenSucceeds(t *testing.T) {
	a := &scriptedApplier{results: []error{
		Transient("commit", errors.New("db down")),
		Transient("commit", errors.New("db down")),
		nil,
	}}
	q := &memQuarantine{}
	if !testConsumer(a, q).Process(context.Background(), testEnvelope(t)) {
		t.Fatal("recovered event must be settled")
	}
	if a.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", a.calls)
	}
	if len(q.entries) != 0 {
		t.Fatal("recovered event must not be dead-lettered")
	}
}

func TestProcessTransientExhaustsBudget(t *testing.T) {
	boom := Transient("commit", errors.New("db down"))
	a := &scriptedApplier{results: []error{boom, boom, boom, boom}}
	q := &memQuarantine{}
	env := testEnvelope(t)
	if !testConsumer(a, q).Process(context.Background(), env) {
		t.Fatal("quarantined event must be settled")
	}
	if a.calls != 3 {
		t.Fatalf("expected exactly the retry budget (3), got %d", a.calls)
	}
	if len(q.entries) != 1 {
		t.Fatalf("expected exactly one dead-letter entry, got %d", len(q.entries))
	}
	if q.entries[0].EventID != env.EventID.String() || q.entries[0].AttemptCount != 3 {
		t.Fatalf("unexpected entry: %+v", q.entries[0])
	}
}

func TestProcessInvariantViolationDeadLettersImmediately(t *testing.T) {
	a := &scriptedApplier{results: []error{
		&choreo.InvariantViolation{AggregateType: "claim", AggregateID: "c-1", Command: "MarkPaid", State: "Rejected"},
	}}
	q := &memQuarantine{}
	if !testConsumer(a, q).Process(context.Background(), testEnvelope(t)) {
		t.Fatal("quarantined event must be settled")
	}
	if a.calls != 1 {
		t.Fatalf("invariant violation must not be retried, got %d attempts", a.calls)
	}
	if len(q.entries) != 1 {
		t.Fatalf("expected one dead-letter entry, got %d", len(q.entries))
	}
	if q.entries[0].AttemptCount != 1 {
		t.Fatalf("expected attempt count 1, got %d", q.entries[0].AttemptCount)
	}
}

func TestProcessShutdownLeavesEventUnsettled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &scriptedApplier{results: []error{Transient("begin", context.Canceled)}}
	q := &memQuarantine{}
	if testConsumer(a, q).Process(ctx, testEnvelope(t)) {
		t.Fatal("shutdown must not settle the event")
	}
	if len(q.entries) != 0 {
		t.Fatal("shutdown must not dead-letter a healthy event")
	}
}

func TestProcessFailedQuarantineLeavesEventUnsettled(t *testing.T) {
	a := &scriptedApplier{results: []error{
		&choreo.InvariantViolation{AggregateType: "claim", AggregateID: "c-1", Command: "MarkPaid", State: "Rejected"},
	}}
	if testConsumer(a, failingQuarantine{}).Process(context.Background(), testEnvelope(t)) {
		t.Fatal("event is not settled until the dead-letter write lands")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"schema error", &event.SchemaError{Kind: event.MalformedPayload, EventType: "x.v1"}, false},
		{"invariant violation", &choreo.InvariantViolation{}, false},
		{"wrapped invariant", Transient("dispatch", &choreo.InvariantViolation{}), false},
		{"transient infra", Transient("begin", errors.New("conn refused")), true},
		{"plain error", errors.New("who knows"), true},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetryDelaySchedule(t *testing.T) {
	p := RetryPolicy{BaseBackoff: 500 * time.Millisecond, MaxBackoff: 30 * time.Second}.normalize()
	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, w, got)
		}
	}
	if got := p.Delay(50); got != 30*time.Second {
		t.Fatalf("expected cap at 30s, got %s", got)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{}.normalize()
	if p.MaxAttempts != 5 {
		t.Fatalf("default attempt budget should be 5, got %d", p.MaxAttempts)
	}
}
