package consume

import "context"

// DeadLetter is what the consumer hands to the dead-letter store when an
// event's retry budget is exhausted or the failure is terminal.
type DeadLetter struct {
	EventID      string
	EventType    string
	Reason       string
	RawPayload   []byte
	AttemptCount int
}

// Quarantiner removes an event from the active retry cycle. Implemented by
// the dead-letter repository; kept as an interface here so the consumer core
// has no dependency on the storage adapter.
type Quarantiner interface {
	Quarantine(ctx context.Context, d DeadLetter) error
}
