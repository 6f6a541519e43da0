// Package riskcheck is an advisory lookup of the customer's current risk
// score at draft time. The authoritative assessment always arrives through
// the event stream; this is display-only and never gates the draft.
package riskcheck

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("risk score unavailable")

type Provider interface {
	Score(ctx context.Context, customerID string) (int, error)
}

type staticProvider struct{}

func NewStaticProvider() Provider {
	return staticProvider{}
}

func (staticProvider) Score(context.Context, string) (int, error) {
	return 0, ErrUnavailable
}
