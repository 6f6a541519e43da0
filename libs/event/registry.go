package event

import (
	"fmt"
	"strconv"
	"strings"
)

// SchemaErrorKind classifies why an envelope failed schema validation.
// All schema errors are non-retryable: redelivering the same bytes cannot fix them.
type SchemaErrorKind int

const (
	UnknownType SchemaErrorKind = iota
	VersionTooOld
	MalformedPayload
)

func (k SchemaErrorKind) String() string {
	switch k {
	case UnknownType:
		return "unknown_type"
	case VersionTooOld:
		return "version_too_old"
	case MalformedPayload:
		return "malformed_payload"
	default:
		return "schema_error"
	}
}

type SchemaError struct {
	Kind      SchemaErrorKind
	EventType string
	Detail    string
}

func (e *SchemaError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("schema error (%s): %s", e.Kind, e.EventType)
	}
	return fmt.Sprintf("schema error (%s): %s: %s", e.Kind, e.EventType, e.Detail)
}

// Schema describes one registered major version of an event type.
// Decode must reject payloads missing required fields; new optional fields are
// always allowed, which is the backward-compatible evolution rule.
type Schema struct {
	// EventType is the full versioned name, e.g. "claim.approved.v1".
	EventType string
	Decode    func(payload []byte) error
}

// Registry is a service's startup-resolved table of the event schemas it
// understands. During a major-version migration window the producer
// dual-publishes and the consumer registers both majors side by side.
type Registry struct {
	schemas map[string]Schema
	// minMajor tracks, per logical type, the oldest major version still accepted.
	minMajor map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		schemas:  map[string]Schema{},
		minMajor: map[string]int{},
	}
}

// Register adds a schema. The versioned suffix (".vN") on EventType is
// mandatory; registering the same versioned type twice is a programming error.
func (r *Registry) Register(s Schema) {
	logical, major, ok := splitVersion(s.EventType)
	if !ok {
		panic("event: Register: event type must end in .vN: " + s.EventType)
	}
	if _, dup := r.schemas[s.EventType]; dup {
		panic("event: Register: duplicate schema: " + s.EventType)
	}
	r.schemas[s.EventType] = s
	if cur, known := r.minMajor[logical]; !known || major < cur {
		r.minMajor[logical] = major
	}
}

// Validate checks an envelope against the registry.
//
// Unknown logical type           -> SchemaError{UnknownType}
// Known type, major too old      -> SchemaError{VersionTooOld}
// Registered type, bad payload   -> SchemaError{MalformedPayload}
func (r *Registry) Validate(env Envelope) error {
	if s, ok := r.schemas[env.EventType]; ok {
		if s.Decode != nil {
			if err := s.Decode(env.Payload); err != nil {
				return &SchemaError{Kind: MalformedPayload, EventType: env.EventType, Detail: err.Error()}
			}
		}
		return nil
	}

	logical, major, ok := splitVersion(env.EventType)
	if !ok {
		return &SchemaError{Kind: UnknownType, EventType: env.EventType}
	}
	min, known := r.minMajor[logical]
	if !known {
		return &SchemaError{Kind: UnknownType, EventType: env.EventType}
	}
	if major < min {
		return &SchemaError{Kind: VersionTooOld, EventType: env.EventType,
			Detail: fmt.Sprintf("major %d below minimum %d", major, min)}
	}
	// A newer major than anything registered is unknown to this consumer.
	return &SchemaError{Kind: UnknownType, EventType: env.EventType}
}

// Known reports whether the exact versioned type is registered.
func (r *Registry) Known(eventType string) bool {
	_, ok := r.schemas[eventType]
	return ok
}

func splitVersion(eventType string) (logical string, major int, ok bool) {
	i := strings.LastIndex(eventType, ".v")
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(eventType[i+2:])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return eventType[:i], n, true
}
