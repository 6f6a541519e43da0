package choreo

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/event"
)

func TestPolicyDispatch(t *testing.T) {
	p := NewPolicy()

	var got []string
	p.On("claim", "claim.approved.v1", func(_ context.Context, _ pgx.Tx, env event.Envelope) error {
		got = append(got, "payout:"+env.AggregateID)
		return nil
	})
	p.On("billing_account", "billing.payout.failed.v1", func(_ context.Context, _ pgx.Tx, env event.Envelope) error {
		return errors.New("boom")
	})

	handled, err := p.Dispatch(context.Background(), nil, event.Envelope{AggregateType: "claim", EventType: "claim.approved.v1", AggregateID: "c-1"})
	if !handled || err != nil {
		t.Fatalf("expected handled dispatch, got handled=%v err=%v", handled, err)
	}
	if len(got) != 1 || got[0] != "payout:c-1" {
		t.Fatalf("handler not invoked as expected: %v", got)
	}

	handled, err = p.Dispatch(context.Background(), nil, event.Envelope{AggregateType: "billing_account", EventType: "billing.payout.failed.v1"})
	if !handled || err == nil {
		t.Fatal("expected handler error to propagate")
	}

	handled, err = p.Dispatch(context.Background(), nil, event.Envelope{AggregateType: "claim", EventType: "claim.rejected.v1"})
	if handled || err != nil {
		t.Fatalf("unmapped event should be skipped cleanly, got handled=%v err=%v", handled, err)
	}
}

func TestPolicyDuplicateRegistrationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	p := NewPolicy()
	p.On("claim", "claim.filed.v1", func(context.Context, pgx.Tx, event.Envelope) error { return nil })
	p.On("claim", "claim.filed.v1", func(context.Context, pgx.Tx, event.Envelope) error { return nil })
}

func TestPolicyTopics(t *testing.T) {
	p := NewPolicy()
	p.On("claim", "claim.filed.v1", nil)
	p.On("claim", "claim.approved.v1", nil)
	p.On("policy", "policy.issued.v1", nil)

	topics := p.Topics()
	sort.Strings(topics)
	want := []string{"claim.events", "policy.events"}
	if len(topics) != len(want) {
		t.Fatalf("expected %v, got %v", want, topics)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, topics)
		}
	}
}
