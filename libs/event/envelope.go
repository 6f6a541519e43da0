package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical wire shape for every domain event exchanged
// between bounded contexts. It is immutable once created: producers build it
// via New and never touch it again.
//
// EventID is the global deduplication key. AggregateID is the Kafka partition
// key, which is what gives per-aggregate ordering. Version is the per-aggregate
// sequence number assigned by the owning service when the aggregate mutates.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Version       int64           `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	CausationID   uuid.UUID       `json:"causation_id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
}

// New builds an envelope for a fresh business fact. CausationID and
// CorrelationID default to the new EventID; use Caused for follow-up events.
func New(aggregateType, aggregateID, eventType string, version int64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	id := uuid.New()
	return Envelope{
		EventID:       id,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Version:       version,
		OccurredAt:    time.Now().UTC(),
		Payload:       raw,
		CausationID:   id,
		CorrelationID: id,
	}, nil
}

// Caused builds a follow-up envelope in reaction to cause, preserving the
// correlation chain: CausationID points at the triggering event, CorrelationID
// carries the id of the event that started the whole flow.
func Caused(cause Envelope, aggregateType, aggregateID, eventType string, version int64, payload any) (Envelope, error) {
	env, err := New(aggregateType, aggregateID, eventType, version, payload)
	if err != nil {
		return Envelope{}, err
	}
	env.CausationID = cause.EventID
	env.CorrelationID = cause.CorrelationID
	return env, nil
}

// Topic returns the Kafka topic for an aggregate type (topic-per-aggregate-type).
func Topic(aggregateType string) string {
	return aggregateType + ".events"
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
