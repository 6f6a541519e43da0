package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/choreo"
)

func filedClaim(t *testing.T) *Claim {
	t.Helper()
	c, err := File("c-1", "p-1", "cust-1", decimal.NewFromInt(1200))
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	return c
}

func TestFileRejectsNonPositiveAmount(t *testing.T) {
	if _, err := File("c-1", "p-1", "cust-1", decimal.Zero); err == nil {
		t.Fatal("zero amount should be rejected")
	}
	if _, err := File("c-1", "p-1", "cust-1", decimal.NewFromInt(-5)); err == nil {
		t.Fatal("negative amount should be rejected")
	}
}

func TestHappyPathToPaid(t *testing.T) {
	c := filedClaim(t)
	steps := []struct {
		cmd  func() error
		want Status
	}{
		{c.StartReview, StatusUnderReview},
		{c.Approve, StatusApproved},
		{c.MarkPaid, StatusPaid},
	}
	for _, s := range steps {
		if err := s.cmd(); err != nil {
			t.Fatalf("transition to %s: %v", s.want, err)
		}
		if c.Status != s.want {
			t.Fatalf("expected %s, got %s", s.want, c.Status)
		}
	}
	if c.Version != 4 {
		t.Fatalf("expected version 4 after three transitions, got %d", c.Version)
	}
}

func TestCompensationPath(t *testing.T) {
	c := filedClaim(t)
	if err := c.StartReview(); err != nil {
		t.Fatal(err)
	}
	if err := c.Approve(); err != nil {
		t.Fatal(err)
	}
	// Payout failed downstream: the compensation reopens the claim.
	if err := c.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if c.Status != StatusReopened {
		t.Fatalf("expected reopened, got %s", c.Status)
	}
	// A reopened claim goes back through review, not straight to paid.
	if err := c.MarkPaid(); err == nil {
		t.Fatal("reopened claim must not be payable")
	}
	if err := c.StartReview(); err != nil {
		t.Fatalf("reopened claim should re-enter review: %v", err)
	}
}

func TestIllegalTransitionsAreInvariantViolations(t *testing.T) {
	c := filedClaim(t)

	cases := []struct {
		name string
		cmd  func() error
	}{
		{"approve before review", c.Approve},
		{"reject before review", c.Reject},
		{"pay before approval", c.MarkPaid},
		{"reopen before approval", c.Reopen},
	}
	for _, tc := range cases {
		err := tc.cmd()
		var iv *choreo.InvariantViolation
		if !errors.As(err, &iv) {
			t.Fatalf("%s: expected InvariantViolation, got %v", tc.name, err)
		}
		if c.Status != StatusFiled {
			t.Fatalf("%s: failed command must not mutate state, got %s", tc.name, c.Status)
		}
		if c.Version != 1 {
			t.Fatalf("%s: failed command must not bump version, got %d", tc.name, c.Version)
		}
	}
}

func TestRejectedIsTerminal(t *testing.T) {
	c := filedClaim(t)
	_ = c.StartReview()
	if err := c.Reject(); err != nil {
		t.Fatal(err)
	}
	for name, cmd := range map[string]func() error{
		"review":  c.StartReview,
		"approve": c.Approve,
		"pay":     c.MarkPaid,
		"reopen":  c.Reopen,
	} {
		if err := cmd(); err == nil {
			t.Fatalf("rejected claim should not allow %s", name)
		}
	}
}
