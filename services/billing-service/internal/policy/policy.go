// Package policy wires billing's choreography: PolicyIssued opens an account
// with its first premium invoice, ClaimApproved schedules a payout. Payout
// execution and its success/failure events live in the payouts worker.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/outbox"
	otelx "github.com/covergrid/covergrid/libs/otel"
	"github.com/covergrid/covergrid/services/billing-service/internal/domain"
	"github.com/covergrid/covergrid/services/billing-service/internal/events"
	"github.com/covergrid/covergrid/services/billing-service/internal/storage"
)

type Config struct {
	// FirstInvoiceDue is how long after account opening the first premium
	// invoice falls due.
	FirstInvoiceDue   time.Duration
	PayoutMaxAttempts int
}

type reactions struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	cfg        Config
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg Config) *choreo.Policy {
	if cfg.FirstInvoiceDue <= 0 {
		cfg.FirstInvoiceDue = 30 * 24 * time.Hour
	}
	if cfg.PayoutMaxAttempts <= 0 {
		cfg.PayoutMaxAttempts = 5
	}
	rx := &reactions{repo: repo, outboxRepo: outboxRepo, logger: logger, cfg: cfg}

	p := choreo.NewPolicy()
	p.On(events.AggregatePolicy, events.PolicyIssued, rx.openAccount)
	p.On(events.AggregateClaim, events.ClaimApproved, rx.issuePayout)
	return p
}

func (rx *reactions) openAccount(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	var p events.PolicyIssuedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}

	account := domain.Open(uuid.NewString(), p.PolicyID, p.CustomerID)
	if err := rx.repo.InsertAccount(ctx, tx, account); err != nil {
		return err
	}

	premium, err := decimal.NewFromString(p.Premium)
	if err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: "premium: " + err.Error()}
	}
	invoice := storage.Invoice{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		PolicyID:  p.PolicyID,
		Amount:    premium,
		DueAt:     time.Now().UTC().Add(rx.cfg.FirstInvoiceDue),
	}
	if err := rx.repo.InsertInvoice(ctx, tx, invoice); err != nil {
		return err
	}

	opened, err := event.Caused(env, events.AggregateBillingAccount, account.ID, events.AccountOpened, account.Version, events.AccountPayload{
		AccountID:  account.ID,
		PolicyID:   account.PolicyID,
		CustomerID: account.CustomerID,
	})
	if err != nil {
		return err
	}
	return rx.outboxRepo.Insert(ctx, tx, opened)
}

// issuePayout translates ClaimApproved into a pending payout. The account
// must exist; whether it accepts the payout is decided at execution time so a
// freeze landing between approval and transfer still fails safe.
func (rx *reactions) issuePayout(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	var p events.ClaimApprovedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: "amount: " + err.Error()}
	}

	account, err := rx.repo.GetAccountByPolicyForUpdate(ctx, tx, p.PolicyID)
	if errors.Is(err, storage.ErrNotFound) {
		// An approved claim against a policy billing never onboarded cannot
		// heal on redelivery: fail it back to claims instead of dropping it.
		rx.logger.Warn("payout for unknown billing account", "claim_id", p.ClaimID, "policy_id", p.PolicyID)
		return rx.emitPayoutFailed(ctx, tx, env, p, "no billing account for policy")
	}
	if err != nil {
		return err
	}

	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	return rx.repo.InsertPayout(ctx, tx, storage.Payout{
		ID:          uuid.NewString(),
		ClaimID:     p.ClaimID,
		PolicyID:    p.PolicyID,
		AccountID:   account.ID,
		Amount:      amount,
		MaxAttempts: rx.cfg.PayoutMaxAttempts,
		Traceparent: traceparent,
		Tracestate:  tracestate,
	})
}

func (rx *reactions) emitPayoutFailed(ctx context.Context, tx pgx.Tx, cause event.Envelope, p events.ClaimApprovedPayload, reason string) error {
	// No account aggregate to version against; key the failure by claim so
	// each orphan gets its own aggregate stream and ordering still holds.
	env, err := event.Caused(cause, events.AggregateBillingAccount, "orphan:"+p.ClaimID, events.PayoutFailed, 1, events.PayoutPayload{
		ClaimID:  p.ClaimID,
		PolicyID: p.PolicyID,
		Amount:   p.Amount,
		Reason:   reason,
	})
	if err != nil {
		return err
	}
	return rx.outboxRepo.Insert(ctx, tx, env)
}
