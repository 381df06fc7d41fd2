package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrCircuitOpen is returned when a breaker rejects a call outright.
// It is never retried.
var ErrCircuitOpen = errors.New("circuit open")

// StandardizedError is the surfaced failure of an executed operation: the
// logical name, how many attempts were made, whether the underlying cause was
// retryable, and the cause itself.
type StandardizedError struct {
	Operation string
	Attempts  int
	Retryable bool
	Err       error
}

func (e *StandardizedError) Error() string {
	return fmt.Sprintf("operation %q failed after %d attempt(s): %v", e.Operation, e.Attempts, e.Err)
}

func (e *StandardizedError) Unwrap() error {
	return e.Err
}

// nonRetryableError marks an error the retry loop must not repeat.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// NonRetryable wraps an error so the executor aborts immediately instead of
// consuming remaining retries.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

var terminalMarkers = []string{
	"unauthorized", "invalid api key", "forbidden", "401", "403",
	"not found", "404", "no such",
	"unsupported", "bad request", "invalid argument",
}

var transientMarkers = []string{
	"timeout", "timed out", "deadline exceeded",
	"connection refused", "connection reset", "broken pipe", "eof",
	"rate limit", "too many requests", "429",
	"service unavailable", "502", "503", "504",
	"temporarily",
}

// IsRetryable classifies an error as transient (network/timeout/rate-limit
// style) or terminal (auth, not-found, validation). Unknown errors default to
// retryable: better to waste an attempt than to drop a recoverable call.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var nonRetryable *nonRetryableError
	if errors.As(err, &nonRetryable) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range terminalMarkers {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return true
}
