// Package policy wires the claims context's choreography: which foreign
// events trigger which local commands. The PayoutFailed -> ReopenClaim
// mapping is the compensation path that replaces a central rollback
// coordinator.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/outbox"
	"github.com/covergrid/covergrid/services/claims-service/internal/domain"
	"github.com/covergrid/covergrid/services/claims-service/internal/events"
	"github.com/covergrid/covergrid/services/claims-service/internal/storage"
)

type reactions struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger) *choreo.Policy {
	rx := &reactions{repo: repo, outboxRepo: outboxRepo, logger: logger}

	p := choreo.NewPolicy()
	p.On(events.AggregateBillingAccount, events.PayoutIssued, rx.markClaimPaid)
	p.On(events.AggregateBillingAccount, events.PayoutFailed, rx.reopenClaim)
	return p
}

func (rx *reactions) markClaimPaid(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	claim, err := rx.loadClaim(ctx, tx, env)
	if err != nil {
		return err
	}
	if err := claim.MarkPaid(); err != nil {
		return err
	}
	if err := rx.repo.Update(ctx, tx, claim); err != nil {
		return err
	}
	return rx.emit(ctx, tx, env, claim, events.ClaimPaid)
}

func (rx *reactions) reopenClaim(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	claim, err := rx.loadClaim(ctx, tx, env)
	if err != nil {
		return err
	}
	if err := claim.Reopen(); err != nil {
		return err
	}
	if err := rx.repo.Update(ctx, tx, claim); err != nil {
		return err
	}
	rx.logger.Warn("claim reopened after failed payout",
		"claim_id", claim.ID, "causation_id", env.CausationID, "correlation_id", env.CorrelationID)
	return rx.emit(ctx, tx, env, claim, events.ClaimReopened)
}

func (rx *reactions) loadClaim(ctx context.Context, tx pgx.Tx, env event.Envelope) (*domain.Claim, error) {
	var p events.PayoutPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}
	claim, err := rx.repo.GetForUpdate(ctx, tx, p.ClaimID)
	if errors.Is(err, storage.ErrNotFound) {
		// A payout outcome for a claim this context never filed can only be
		// corrupt routing; it will not heal on redelivery.
		return nil, &choreo.InvariantViolation{
			AggregateType: events.AggregateClaim,
			AggregateID:   p.ClaimID,
			Command:       "LoadClaim",
			State:         "missing",
		}
	}
	return claim, err
}

func (rx *reactions) emit(ctx context.Context, tx pgx.Tx, cause event.Envelope, claim *domain.Claim, eventType string) error {
	env, err := event.Caused(cause, events.AggregateClaim, claim.ID, eventType, claim.Version, events.ClaimPayload{
		ClaimID:    claim.ID,
		PolicyID:   claim.PolicyID,
		CustomerID: claim.CustomerID,
		Amount:     claim.Amount.String(),
	})
	if err != nil {
		return err
	}
	return rx.outboxRepo.Insert(ctx, tx, env)
}
