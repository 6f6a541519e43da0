package domain

import (
	"time"

	"github.com/covergrid/covergrid/libs/choreo"
)

// Status is the billing account lifecycle: Open <-> Frozen, either -> Closed.
// A frozen account blocks payouts, which is what triggers the PayoutFailed
// compensation back to the claims context.
type Status string

const (
	StatusOpen   Status = "open"
	StatusFrozen Status = "frozen"
	StatusClosed Status = "closed"
)

type Account struct {
	ID         string
	PolicyID   string
	CustomerID string
	Status     Status
	Version    int64
	OpenedAt   time.Time
	UpdatedAt  time.Time
}

func Open(id, policyID, customerID string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:         id,
		PolicyID:   policyID,
		CustomerID: customerID,
		Status:     StatusOpen,
		Version:    1,
		OpenedAt:   now,
		UpdatedAt:  now,
	}
}

func (a *Account) Freeze() error {
	return a.transition("Freeze", StatusFrozen, StatusOpen)
}

func (a *Account) Unfreeze() error {
	return a.transition("Unfreeze", StatusOpen, StatusFrozen)
}

func (a *Account) Close() error {
	return a.transition("Close", StatusClosed, StatusOpen, StatusFrozen)
}

// AcceptsPayout reports whether a payout may be executed against the account.
func (a *Account) AcceptsPayout() bool {
	return a.Status == StatusOpen
}

// RecordEvent bumps the aggregate version for facts that do not change the
// account's own status (payout outcomes, overdue flags). The new version
// rides on the emitted event so consumers keep per-aggregate ordering.
func (a *Account) RecordEvent() int64 {
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	return a.Version
}

func (a *Account) transition(command string, to Status, from ...Status) error {
	for _, f := range from {
		if a.Status == f {
			a.Status = to
			a.Version++
			a.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return &choreo.InvariantViolation{
		AggregateType: "billing_account",
		AggregateID:   a.ID,
		Command:       command,
		State:         string(a.Status),
	}
}
