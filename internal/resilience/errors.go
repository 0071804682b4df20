package resilience

import (
	"errors"
	"fmt"
)

// Admission and attempt failures produced inside the pipeline. They reach
// callers only as the Cause of an OperationFailure.
var (
	ErrCircuitOpen  = errors.New("circuit breaker is open")
	ErrBulkheadFull = errors.New("bulkhead is full")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrTimeout      = errors.New("attempt timed out")
)

// Reason says which stage of the pipeline gave up.
type Reason string

const (
	ReasonCircuitOpen      Reason = "circuit_open"
	ReasonBulkheadFull     Reason = "bulkhead_full"
	ReasonRateLimited      Reason = "rate_limited"
	ReasonTimeout          Reason = "timeout"
	ReasonRetriesExhausted Reason = "retries_exhausted"
	ReasonCancelled        Reason = "cancelled"
	ReasonPanic            Reason = "panic"
)

// OperationFailure is returned when the pipeline could not complete a call
// against an unhealthy downstream. It is distinct from caller errors such as
// validation or not-found, which pass through the pipeline untouched.
type OperationFailure struct {
	Operation string
	Category  Category
	Reason    Reason
	Attempts  int
	Cause     error
}

func (f *OperationFailure) Error() string {
	if f.Cause == nil {
		return fmt.Sprintf("%s [%s]: %s", f.Operation, f.Category, f.Reason)
	}
	return fmt.Sprintf("%s [%s]: %s: %v", f.Operation, f.Category, f.Reason, f.Cause)
}

func (f *OperationFailure) Unwrap() error {
	return f.Cause
}

// Retryable reports whether a higher layer may try the operation again later.
// Every reason except a recovered panic is transient.
func (f *OperationFailure) Retryable() bool {
	return f.Reason != ReasonPanic
}

// AsOperationFailure extracts an OperationFailure from err's chain.
func AsOperationFailure(err error) (*OperationFailure, bool) {
	var failure *OperationFailure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// IsOperationFailure reports whether err carries an OperationFailure.
func IsOperationFailure(err error) bool {
	_, ok := AsOperationFailure(err)
	return ok
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}
