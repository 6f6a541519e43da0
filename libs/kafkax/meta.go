package kafkax

import (
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/covergrid/covergrid/libs/event"
)

// EnvelopeHeaders projects the envelope's metadata onto Kafka headers so
// broker-side tooling can filter without parsing the JSON value.
func EnvelopeHeaders(env event.Envelope) []kafka.Header {
	return []kafka.Header{
		{Key: "event_id", Value: []byte(env.EventID.String())},
		{Key: "event_type", Value: []byte(env.EventType)},
		{Key: "aggregate_type", Value: []byte(env.AggregateType)},
		{Key: "aggregate_id", Value: []byte(env.AggregateID)},
		{Key: "version", Value: []byte(strconv.FormatInt(env.Version, 10))},
		{Key: "causation_id", Value: []byte(env.CausationID.String())},
		{Key: "correlation_id", Value: []byte(env.CorrelationID.String())},
	}
}

// EventMeta is the minimal metadata read back off a message for logging
// before the envelope itself has been decoded.
type EventMeta struct {
	EventID   string
	EventType string
}

func ExtractEventMeta(msg kafka.Message) EventMeta {
	eventID := HeaderValue(msg.Headers, "event_id")
	eventType := HeaderValue(msg.Headers, "event_type")
	if eventID == "" {
		eventID = string(msg.Key)
	}
	if eventType == "" {
		eventType = msg.Topic
	}
	return EventMeta{EventID: eventID, EventType: eventType}
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
