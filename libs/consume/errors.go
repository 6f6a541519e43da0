package consume

import (
	"errors"
	"fmt"

	"github.com/covergrid/covergrid/libs/choreo"
	"github.com/covergrid/covergrid/libs/event"
)

// ErrDuplicate marks an event already absorbed by the ledger or superseded by
// a newer per-aggregate version. It is not a failure: the consumer
// acknowledges and moves on.
var ErrDuplicate = errors.New("duplicate event")

// TransientError wraps infrastructure failures (broker, database, timeouts)
// that are expected to heal. The consumer retries them with backoff up to the
// attempt budget before dead-lettering.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsRetryable classifies a processing failure.
//
// Schema errors and invariant violations are terminal: the same bytes will
// fail the same way on every delivery. Everything else, including exceeded
// execution budgets, is assumed transient and retried within the budget.
// Cancellation is not a classification matter: the consumer leaves a canceled
// event's offset uncommitted and waits for redelivery.
func IsRetryable(err error) bool {
	var se *event.SchemaError
	if errors.As(err, &se) {
		return false
	}
	var iv *choreo.InvariantViolation
	if errors.As(err, &iv) {
		return false
	}
	return true
}
