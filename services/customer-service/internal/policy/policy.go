// Package policy wires the customer context's choreography: PolicyIssued
// lands in a local read model so portal reads never cross a service boundary.
package policy

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/event"
	"github.com/covergrid/covergrid/services/customer-service/internal/events"
	"github.com/covergrid/covergrid/services/customer-service/internal/storage"
)

type reactions struct {
	repo   *storage.Repository
	logger *slog.Logger
}

func New(repo *storage.Repository, logger *slog.Logger) *choreo.Policy {
	rx := &reactions{repo: repo, logger: logger}

	p := choreo.NewPolicy()
	p.On(events.AggregatePolicy, events.PolicyIssued, rx.recordPolicy)
	return p
}

func (rx *reactions) recordPolicy(ctx context.Context, tx pgx.Tx, env event.Envelope) error {
	var p events.PolicyIssuedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return &event.SchemaError{Kind: event.MalformedPayload, EventType: env.EventType, Detail: err.Error()}
	}
	rx.logger.Info("policy recorded for customer", "customer_id", p.CustomerID, "policy_id", p.PolicyID)
	return rx.repo.RecordPolicy(ctx, tx, p.CustomerID, storage.PolicyRef{
		PolicyID: p.PolicyID,
		Product:  p.Product,
		Premium:  p.Premium,
		IssuedAt: env.OccurredAt.UTC(),
	})
}
