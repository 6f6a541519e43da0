// Package policy wires the policy context's choreography: RiskAssessed
// activates or declines a drafted policy, InvoiceOverdue lapses an active one.
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
	"github.com/covergrid/covergrid/services/policy-service/internal/domain"
	"github.com/covergrid/covergrid/services/policy-service/internal/events"
	"github.com/covergrid/covergrid/services/policy-service/internal/storage"
)

type reactions struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger) *choreo.Policy {
	rx := &reactions{repo: repo, outboxRepo: outboxRepo, logger: logger}

	p := choreo.NewPolicy()
	p.On(events.AggregateRiskProfile, events.RiskAssessed, rx.applyAssessment)
	p.On(events.AggregateBillingAccount, events.InvoiceOverdue, rx.lapsePolicy)
	return p
}

func (rx *reactions) applyAssessment(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	var a events.RiskAssessedPayload
	if err := json.Unmarshal(env.Payload, &a); err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}

	p, err := rx.loadPolicy(ctx, tx, a.PolicyID, "ApplyAssessment")
	if err != nil {
		return err
	}

	if !a.Approved {
		if err := p.Decline(); err != nil {
			return err
		}
		rx.logger.Info("policy declined", "policy_id", p.ID, "score", a.Score)
		return rx.persist(ctx, tx, env, p, events.PolicyDeclined)
	}

	premium := domain.PremiumFor(p.Coverage, a.Score)
	if err := p.Activate(premium); err != nil {
		return err
	}
	rx.logger.Info("policy issued", "policy_id", p.ID, "score", a.Score, "premium", premium.String())
	return rx.persist(ctx, tx, env, p, events.PolicyIssued)
}

func (rx *reactions) lapsePolicy(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	var o events.InvoiceOverduePayload
	if err := json.Unmarshal(env.Payload, &o); err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}

	p, err := rx.loadPolicy(ctx, tx, o.PolicyID, "Lapse")
	if err != nil {
		return err
	}
	if err := p.Lapse(); err != nil {
		return err
	}
	rx.logger.Warn("policy lapsed", "policy_id", p.ID, "invoice_id", o.InvoiceID)
	return rx.persist(ctx, tx, env, p, events.PolicyLapsed)
}

func (rx *reactions) loadPolicy(ctx context.Context, tx pgx.Tx, id, command string) (*domain.Policy, error) {
	p, err := rx.repo.GetForUpdate(ctx, tx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &choreo.InvariantViolation{
			AggregateType: events.AggregatePolicy,
			AggregateID:   id,
			Command:       command,
			State:         "missing",
		}
	}
	return p, err
}

func (rx *reactions) persist(ctx context.Context, tx pgx.Tx, cause event.Envelope, p *domain.Policy, eventType string) error {
	if err := rx.repo.Update(ctx, tx, p); err != nil {
		return err
	}
	env, err := event.Caused(cause, events.AggregatePolicy, p.ID, eventType, p.Version, events.PolicyPayload{
		PolicyID:   p.ID,
		CustomerID: p.CustomerID,
		Product:    p.Product,
		Coverage:   p.Coverage.String(),
		Premium:    p.Premium.String(),
	})
	if err != nil {
		return err
	}
	return rx.outboxRepo.Insert(ctx, tx, env)
}
