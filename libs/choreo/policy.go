// Package choreo holds the per-service choreography policy: the table mapping
// received events to local commands. There is no central orchestrator; each
// bounded context registers its own reactions (including compensations) at
// startup and the consumer dispatches through the table.
package choreo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/covergrid/covergrid/libs/event"
)

// Handler translates an event into a local command. It runs inside the
// consumer's transaction: aggregate mutations, follow-up outbox inserts and
// the processed-event ledger entry all commit together.
type Handler func(ctx context.Context, tx pgx.Tx, env event.Envelope) error

type key struct {
	aggregateType string
	eventType     string
}

type Policy struct {
	handlers map[key]Handler
}

func NewPolicy() *Policy {
	return &Policy{handlers: map[key]Handler{}}
}

// On registers a reaction for (aggregateType, eventType). The table is
// resolved once at startup; a duplicate registration is a programming error.
func (p *Policy) On(aggregateType, eventType string, h Handler) *Policy {
	k := key{aggregateType, eventType}
	if _, dup := p.handlers[k]; dup {
		panic(fmt.Sprintf("choreo: duplicate handler for %s/%s", aggregateType, eventType))
	}
	p.handlers[k] = h
	return p
}

// Handles reports whether a reaction is registered for (aggregateType, eventType).
func (p *Policy) Handles(aggregateType, eventType string) bool {
	_, ok := p.handlers[key{aggregateType, eventType}]
	return ok
}

// Dispatch routes an event to its handler. handled=false means this service
// has no reaction registered for the event, which is normal on shared topics:
// the event is acknowledged and skipped.
func (p *Policy) Dispatch(ctx context.Context, tx pgx.Tx, env event.Envelope) (handled bool, err error) {
	h, ok := p.handlers[key{env.AggregateType, env.EventType}]
	if !ok {
		return false, nil
	}
	return true, h(ctx, tx, env)
}

// Topics returns the distinct topics the policy needs subscriptions for.
func (p *Policy) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for k := range p.handlers {
		t := event.Topic(k.aggregateType)
		if !seen[t] {
			seen[t] = true
			topics = append(topics, t)
		}
	}
	return topics
}

// InvariantViolation reports that an event mapped to a command the aggregate's
// current state does not allow. It is non-retryable: redelivery cannot make an
// illegal transition legal, so the consumer dead-letters it with the full
// causation chain for audit.
type InvariantViolation struct {
	AggregateType string
	AggregateID   string
	Command       string
	State         string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s %q in state %q cannot apply %s",
		e.AggregateType, e.AggregateID, e.State, e.Command)
}
