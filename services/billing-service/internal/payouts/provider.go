package payouts

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	stripepayout "github.com/stripe/stripe-go/v79/payout"

	"github.com/google/uuid"
)

// Provider executes the money movement for an issued payout and returns a
// provider-side reference for reconciliation.
type Provider interface {
	Transfer(ctx context.Context, payoutID string, amount decimal.Decimal, currency string) (string, error)
}

// StripeProvider moves funds through Stripe payouts. The payout id doubles as
// the idempotency key so a worker crash between transfer and commit cannot
// double-pay.
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) Transfer(_ context.Context, payoutID string, amount decimal.Decimal, currency string) (string, error) {
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(currency),
	}
	params.SetIdempotencyKey(payoutID)
	out, err := stripepayout.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe payout: %w", err)
	}
	return out.ID, nil
}

// LocalProvider is the development default: transfers always succeed and the
// reference is synthesized.
type LocalProvider struct{}

func (LocalProvider) Transfer(_ context.Context, payoutID string, _ decimal.Decimal, _ string) (string, error) {
	return "local-" + uuid.NewString()[:8] + "-" + payoutID[:8], nil
}
