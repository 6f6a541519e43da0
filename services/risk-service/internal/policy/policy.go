// Package policy wires the risk context's choreography. Events from other
// contexts can arrive in any relative order across aggregates, so a missing
// profile is treated as transient: the registration event may simply still be
// in flight, and a retry usually heals it.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/consume"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/libs/outbox"
	"github.com/covergrid/covergrid/services/risk-service/internal/domain"
	"github.com/covergrid/covergrid/services/risk-service/internal/events"
	"github.com/covergrid/covergrid/services/risk-service/internal/storage"
)

type Config struct {
	// MaxApprovedScore is the highest score a draft can be approved at.
	MaxApprovedScore int
}

type reactions struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	cfg        Config
}

func New(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg Config) *choreo.Policy {
	if cfg.MaxApprovedScore <= 0 {
		cfg.MaxApprovedScore = 75
	}
	rx := &reactions{repo: repo, outboxRepo: outboxRepo, logger: logger, cfg: cfg}

	p := choreo.NewPolicy()
	p.On(events.AggregateCustomer, events.CustomerRegistered, rx.openProfile)
	p.On(events.AggregatePolicy, events.PolicyDrafted, rx.assessDraft)
	p.On(events.AggregatePolicy, events.PolicyLapsed, rx.penalizeLapse)
	p.On(events.AggregateClaim, events.ClaimFiled, rx.recordClaimFiled)
	p.On(events.AggregateClaim, events.ClaimApproved, rx.recordClaimApproved)
	return p
}

func (rx *reactions) openProfile(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	var c events.CustomerRegisteredPayload
	if err := json.Unmarshal(env.Payload, &c); err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}
	profile := domain.OpenProfile(uuid.NewString(), c.CustomerID)
	return rx.repo.Insert(ctx, tx, profile)
}

func (rx *reactions) assessDraft(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	var p events.PolicyPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}

	profile, err := rx.loadProfile(ctx, tx, p.CustomerID)
	if err != nil {
		return err
	}

	assessment := profile.Assess(rx.cfg.MaxApprovedScore)
	if err := rx.repo.Update(ctx, tx, profile); err != nil {
		return err
	}
	rx.logger.Info("draft assessed", "policy_id", p.PolicyID, "score", assessment.Score, "approved", assessment.Approved)

	assessed, err := event.Caused(env, events.AggregateRiskProfile, profile.ID, events.RiskAssessed, profile.Version, events.RiskAssessedPayload{
		ProfileID:  profile.ID,
		CustomerID: profile.CustomerID,
		PolicyID:   p.PolicyID,
		Score:      assessment.Score,
		Approved:   assessment.Approved,
	})
	if err != nil {
		return err
	}
	return rx.outboxRepo.Insert(ctx, tx, assessed)
}

func (rx *reactions) penalizeLapse(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	return rx.recompute(ctx, tx, env, (*domain.Profile).PenalizeLapse)
}

func (rx *reactions) recordClaimFiled(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	return rx.recompute(ctx, tx, env, (*domain.Profile).RecordClaimFiled)
}

func (rx *reactions) recordClaimApproved(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	return rx.recompute(ctx, tx, env, (*domain.Profile).RecordClaimApproved)
}

// recompute applies a score adjustment from claim or policy history. The
// payload shapes differ but all carry customer_id, which is the only field
// these adjustments need.
func (rx *reactions) recompute(ctx context.Context, tx pgx.Tx, env event.Envelope, adjust func(*domain.Profile)) error {
	var ref struct {
		CustomerID string `json:"customer_id"`
	}
	if err := json.Unmarshal(env.Payload, &ref); err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}

	profile, err := rx.loadProfile(ctx, tx, ref.CustomerID)
	if err != nil {
		return err
	}
	adjust(profile)
	rx.logger.Info("risk score recomputed", "customer_id", ref.CustomerID, "event_type", env.EventType, "score", profile.Score)
	return rx.repo.Update(ctx, tx, profile)
}

// loadProfile locks the row for the rest of the transaction.
func (rx *reactions) loadProfile(ctx context.Context, tx pgx.Tx, customerID string) (*domain.Profile, error) {
	profile, err := rx.repo.GetByCustomerForUpdate(ctx, tx, customerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, consume.Transient("load risk profile",
			fmt.Errorf("no profile for customer %s yet", customerID))
	}
	return profile, err
}
