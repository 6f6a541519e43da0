package domain

import (
	"errors"
	"testing"

	"github.com/covergrid/covergrid/libs/choreo"
)

func TestFreezeBlocksPayouts(t *testing.T) {
	a := Open("b-1", "p-1", "cust-1")
	if !a.AcceptsPayout() {
		t.Fatal("open account should accept payouts")
	}
	if err := a.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if a.AcceptsPayout() {
		t.Fatal("frozen account must not accept payouts")
	}
	if err := a.Unfreeze(); err != nil {
		t.Fatalf("Unfreeze: %v", err)
	}
	if !a.AcceptsPayout() {
		t.Fatal("unfrozen account should accept payouts again")
	}
}

func TestClosedIsTerminal(t *testing.T) {
	a := Open("b-1", "p-1", "cust-1")
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for name, cmd := range map[string]func() error{
		"freeze":   a.Freeze,
		"unfreeze": a.Unfreeze,
		"close":    a.Close,
	} {
		err := cmd()
		var iv *choreo.InvariantViolation
		if !errors.As(err, &iv) {
			t.Fatalf("%s on closed account: expected InvariantViolation, got %v", name, err)
		}
	}
	if a.AcceptsPayout() {
		t.Fatal("closed account must not accept payouts")
	}
}

func TestVersionMonotone(t *testing.T) {
	a := Open("b-1", "p-1", "cust-1")
	if a.Version != 1 {
		t.Fatalf("expected version 1 after open, got %d", a.Version)
	}
	_ = a.Freeze()
	if a.Version != 2 {
		t.Fatalf("expected version 2 after freeze, got %d", a.Version)
	}
	if v := a.RecordEvent(); v != 3 {
		t.Fatalf("expected version 3 after recorded event, got %d", v)
	}
	// Failed command must not bump.
	_ = a.Freeze()
	if a.Version != 3 {
		t.Fatalf("failed command bumped version to %d", a.Version)
	}
}
