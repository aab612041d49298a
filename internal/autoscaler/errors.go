package autoscaler

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTrigger means the event identity matches none of the configured
	// rules or alarms. Redelivery cannot fix it.
	ErrUnknownTrigger = errors.New("unknown trigger")

	// ErrMalformedEvent means an alarm-change event arrived without state detail.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrRemovableSetExhausted means every active node is protected while the
	// active count is still above the floor.
	ErrRemovableSetExhausted = errors.New("no removable nodes")
)

// DependencyError wraps a failure from the cluster, alarm or rule service.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func dependencyError(op string, err error) error {
	return &DependencyError{Op: op, Err: err}
}

// IsRetryable reports whether redelivering the same event may succeed.
func IsRetryable(err error) bool {
	var depErr *DependencyError
	return errors.As(err, &depErr)
}
