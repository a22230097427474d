package future

import (
	"errors"
	"fmt"
	"time"
)

// ErrPredicateRejected reports a completion value rejected by a
// FilterDefault predicate.
var ErrPredicateRejected = errors.New("future: predicate rejected value")

var errNilFailure = errors.New("future: failed with nil error")

// An ExecutionError reports that a Future settled in the failed state.
// The error that failed the Future is its Cause.
type ExecutionError struct {
	Cause error
}

func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return "future: execution failed"
	}
	return "future: execution failed: " + e.Cause.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// A TimeoutError reports a wait, or a Timeout race, that exceeded its
// limit.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("future: timeout of %v exceeded", e.Limit)
}

// A CastError reports a completion value whose dynamic type is not the
// one Cast asked for.
type CastError struct {
	Expected string
	Actual   string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("future: cannot cast %s to %s", e.Actual, e.Expected)
}
