package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/choreo"
)

func draft(t *testing.T) *Policy {
	t.Helper()
	p, err := Draft("pol-1", "cus-1", "home", decimal.NewFromInt(100000))
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	return p
}

func TestIssueLifecycle(t *testing.T) {
	p := draft(t)
	if p.Status != StatusDrafted || p.Version != 1 {
		t.Fatalf("after draft: status=%s version=%d", p.Status, p.Version)
	}

	premium := PremiumFor(p.Coverage, 50)
	if err := p.Activate(premium); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if p.Status != StatusActive || p.Version != 2 {
		t.Fatalf("after activate: status=%s version=%d", p.Status, p.Version)
	}
	if got := p.Premium.String(); got != "1500" {
		t.Fatalf("premium = %s, want 1500", got)
	}

	if err := p.Lapse(); err != nil {
		t.Fatalf("Lapse: %v", err)
	}
	if p.Status != StatusLapsed || p.Version != 3 {
		t.Fatalf("after lapse: status=%s version=%d", p.Status, p.Version)
	}
}

func TestDeclineOnlyFromDrafted(t *testing.T) {
	p := draft(t)
	if err := p.Activate(decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	err := p.Decline()
	var iv *choreo.InvariantViolation
	if !errors.As(err, &iv) {
		t.Fatalf("Decline after activation: got %v, want InvariantViolation", err)
	}
	if p.Status != StatusActive || p.Version != 2 {
		t.Fatalf("failed command mutated state: status=%s version=%d", p.Status, p.Version)
	}
}

func TestCancelledPolicyCannotLapse(t *testing.T) {
	p := draft(t)
	if err := p.Activate(decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := p.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	var iv *choreo.InvariantViolation
	if err := p.Lapse(); !errors.As(err, &iv) {
		t.Fatalf("Lapse after cancel: got %v, want InvariantViolation", err)
	}
}

func TestDraftRejectsNonPositiveCoverage(t *testing.T) {
	if _, err := Draft("pol-1", "cus-1", "home", decimal.Zero); err == nil {
		t.Fatal("Draft accepted zero coverage")
	}
}

func TestPremiumFor(t *testing.T) {
	cases := []struct {
		coverage string
		score    int
		want     string
	}{
		{"100000", 50, "1500"},
		{"100000", 0, "1000"},
		{"50000", 80, "900"},
		{"12345.67", 50, "185.19"},
	}
	for _, tc := range cases {
		cov, _ := decimal.NewFromString(tc.coverage)
		if got := PremiumFor(cov, tc.score).String(); got != tc.want {
			t.Errorf("PremiumFor(%s, %d) = %s, want %s", tc.coverage, tc.score, got, tc.want)
		}
	}
}
