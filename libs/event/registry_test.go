package event

import (
	"encoding/json"
	"errors"
	"testing"
)

func decodeRequiring(fields ...string) func([]byte) error {
	return func(payload []byte) error {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return err
		}
		for _, f := range fields {
			if _, ok := m[f]; !ok {
				return errors.New("missing field " + f)
			}
		}
		return nil
	}
}

func TestRegistryValidate(t *testing.T) {
	r := NewRegistry()
	r.Register(Schema{EventType: "claim.approved.v2", Decode: decodeRequiring("claim_id", "amount")})

	env, err := New("claim", "c-1", "claim.approved.v2", 3, map[string]any{
		"claim_id": "c-1",
		"amount":   "125.50",
		"note":     "optional fields are fine",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Validate(env); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}

	env.EventType = "claim.imaginary.v1"
	if kind := schemaKind(t, r.Validate(env)); kind != UnknownType {
		t.Fatalf("expected UnknownType, got %s", kind)
	}

	env.EventType = "claim.approved.v1"
	if kind := schemaKind(t, r.Validate(env)); kind != VersionTooOld {
		t.Fatalf("expected VersionTooOld, got %s", kind)
	}

	env.EventType = "claim.approved.v2"
	env.Payload = json.RawMessage(`{"claim_id":"c-1"}`)
	if kind := schemaKind(t, r.Validate(env)); kind != MalformedPayload {
		t.Fatalf("expected MalformedPayload, got %s", kind)
	}

	env.Payload = json.RawMessage(`not json`)
	if kind := schemaKind(t, r.Validate(env)); kind != MalformedPayload {
		t.Fatalf("expected MalformedPayload for garbage, got %s", kind)
	}
}

func TestRegistryDualPublishWindow(t *testing.T) {
	r := NewRegistry()
	r.Register(Schema{EventType: "policy.issued.v1"})
	r.Register(Schema{EventType: "policy.issued.v2"})

	for _, typ := range []string{"policy.issued.v1", "policy.issued.v2"} {
		env := Envelope{EventType: typ, Payload: json.RawMessage(`{}`)}
		if err := r.Validate(env); err != nil {
			t.Fatalf("%s should validate during migration window: %v", typ, err)
		}
	}

	env := Envelope{EventType: "policy.issued.v3", Payload: json.RawMessage(`{}`)}
	if kind := schemaKind(t, r.Validate(env)); kind != UnknownType {
		t.Fatalf("unregistered newer major should be UnknownType, got %s", kind)
	}
}

func TestCausedPreservesCorrelation(t *testing.T) {
	root, err := New("claim", "c-9", "claim.approved.v1", 3, map[string]any{"claim_id": "c-9"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	follow, err := Caused(root, "billing_account", "b-1", "billing.payout.failed.v1", 2, map[string]any{"claim_id": "c-9"})
	if err != nil {
		t.Fatalf("Caused: %v", err)
	}
	if follow.CausationID != root.EventID {
		t.Fatal("causation id should point at the triggering event")
	}
	if follow.CorrelationID != root.CorrelationID {
		t.Fatal("correlation id should carry through the chain")
	}
	if follow.EventID == root.EventID {
		t.Fatal("follow-up must get its own event id")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := New("policy", "p-1", "policy.issued.v1", 2, map[string]any{"policy_id": "p-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.EventID != env.EventID || got.Version != env.Version || got.EventType != env.EventType {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, env)
	}
}

func schemaKind(t *testing.T, err error) SchemaErrorKind {
	t.Helper()
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	return se.Kind
}
