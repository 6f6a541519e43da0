package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/choreo"
)

// Status is the claim lifecycle:
//
//	Filed -> UnderReview -> Approved | Rejected
//	Approved -> Paid | Reopened
//	Reopened -> UnderReview
//
// Transitions happen only through the command methods below; an event that
// maps to an illegal transition surfaces as an InvariantViolation and is
// dead-lettered, never forced.
type Status string

const (
	StatusFiled       Status = "filed"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusPaid        Status = "paid"
	StatusReopened    Status = "reopened"
)

// Claim is the claims context's aggregate root. Version is the per-aggregate
// event sequence: every successful command bumps it, and the new value rides
// on the emitted event.
type Claim struct {
	ID         string
	PolicyID   string
	CustomerID string
	Amount     decimal.Decimal
	Status     Status
	Version    int64
	FiledAt    time.Time
	UpdatedAt  time.Time
}

func File(id, policyID, customerID string, amount decimal.Decimal) (*Claim, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, &choreo.InvariantViolation{AggregateType: "claim", AggregateID: id, Command: "File", State: "amount must be positive"}
	}
	now := time.Now().UTC()
	return &Claim{
		ID:         id,
		PolicyID:   policyID,
		CustomerID: customerID,
		Amount:     amount,
		Status:     StatusFiled,
		Version:    1,
		FiledAt:    now,
		UpdatedAt:  now,
	}, nil
}

func (c *Claim) StartReview() error {
	return c.transition("StartReview", StatusUnderReview, StatusFiled, StatusReopened)
}

func (c *Claim) Approve() error {
	return c.transition("Approve", StatusApproved, StatusUnderReview)
}

func (c *Claim) Reject() error {
	return c.transition("Reject", StatusRejected, StatusUnderReview)
}

func (c *Claim) MarkPaid() error {
	return c.transition("MarkPaid", StatusPaid, StatusApproved)
}

// Reopen is the compensation for a failed payout: the approved claim goes
// back into the review cycle instead of staying approved-but-unpayable.
func (c *Claim) Reopen() error {
	return c.transition("Reopen", StatusReopened, StatusApproved)
}

func (c *Claim) transition(command string, to Status, from ...Status) error {
	for _, f := range from {
		if c.Status == f {
			c.Status = to
			c.Version++
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return &choreo.InvariantViolation{
		AggregateType: "claim",
		AggregateID:   c.ID,
		Command:       command,
		State:         string(c.Status),
	}
}
