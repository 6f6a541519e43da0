// Package domain holds the policy aggregate. A policy is drafted
// synchronously and then activated or declined by the risk assessment that
// arrives asynchronously, so Drafted is a real resting state, not a
// transaction in flight.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/choreo"
)

type Status string

const (
	StatusDrafted   Status = "drafted"
	StatusActive    Status = "active"
	StatusDeclined  Status = "declined"
	StatusLapsed    Status = "lapsed"
	StatusCancelled Status = "cancelled"
)

type Policy struct {
	ID         string
	CustomerID string
	Product    string
	Coverage   decimal.Decimal
	Premium    decimal.Decimal
	Status     Status
	Version    int64
	DraftedAt  time.Time
	UpdatedAt  time.Time
}

func Draft(id, customerID, product string, coverage decimal.Decimal) (*Policy, error) {
	if !coverage.IsPositive() {
		return nil, errors.New("coverage must be positive")
	}
	now := time.Now().UTC()
	return &Policy{
		ID:         id,
		CustomerID: customerID,
		Product:    product,
		Coverage:   coverage,
		Status:     StatusDrafted,
		Version:    1,
		DraftedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Activate issues the policy at the premium computed from the risk score.
func (p *Policy) Activate(premium decimal.Decimal) error {
	if err := p.transition("Activate", StatusActive, StatusDrafted); err != nil {
		return err
	}
	p.Premium = premium
	return nil
}

func (p *Policy) Decline() error {
	return p.transition("Decline", StatusDeclined, StatusDrafted)
}

func (p *Policy) Lapse() error {
	return p.transition("Lapse", StatusLapsed, StatusActive)
}

func (p *Policy) Cancel() error {
	return p.transition("Cancel", StatusCancelled, StatusActive)
}

func (p *Policy) transition(command string, to Status, from ...Status) error {
	for _, f := range from {
		if p.Status == f {
			p.Status = to
			p.Version++
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return &choreo.InvariantViolation{
		AggregateType: "policy",
		AggregateID:   p.ID,
		Command:       command,
		State:         string(p.Status),
	}
}

// PremiumFor prices a policy: a flat 100 basis points of coverage plus one
// basis point per risk score point, rounded to cents. Score 50 (the base
// profile) prices at 1.50% of coverage.
func PremiumFor(coverage decimal.Decimal, score int) decimal.Decimal {
	bps := decimal.NewFromInt(int64(100 + score))
	return coverage.Mul(bps).Div(decimal.NewFromInt(10000)).Round(2)
}
