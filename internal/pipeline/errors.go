package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline runs.
// These can be checked with errors.Is().
var (
	// ErrPrecondition marks a run rejected before any side effect.
	ErrPrecondition = errors.New("precondition failed")

	// ErrTriplesFailed is returned when at least one crop failed.
	ErrTriplesFailed = errors.New("one or more crops failed")
)

// preconditionError wraps err as a precondition failure.
func preconditionError(err error) error {
	return fmt.Errorf("%w: %w", ErrPrecondition, err)
}

// triplesFailedError reports how many crops failed.
func triplesFailedError(failed, total int) error {
	return fmt.Errorf("%w: %d of %d", ErrTriplesFailed, failed, total)
}
