package resilience

import (
	"context"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// RetryConfig controls the backoff schedule.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1000 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   10000 * time.Millisecond,
	}
}

// Operation is any asynchronous unit of work the executor can run. The
// executor knows nothing about what it executes, only its logical name.
type Operation func(ctx context.Context) error

// NamedOperation pairs an operation with its circuit-breaker name.
type NamedOperation struct {
	Name string
	Op   Operation
}

// ParallelResult is one outcome from RunParallel.
type ParallelResult struct {
	Name string
	Err  error
}

// Executor wraps arbitrary operations with retry, exponential backoff, and a
// per-name circuit breaker. One instance is shared by every outbound call so
// resilience policy cannot drift between call sites.
type Executor struct {
	breakers *BreakerRegistry
	retry    RetryConfig
	logger   *log.Logger
}

func NewExecutor(retry RetryConfig, breaker BreakerConfig, logger *log.Logger) *Executor {
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}
	return &Executor{
		breakers: NewBreakerRegistry(breaker),
		retry:    retry,
		logger:   logger,
	}
}

// Breakers exposes the registry for inspection.
func (e *Executor) Breakers() *BreakerRegistry {
	return e.breakers
}

// Execute runs op under the named circuit breaker with bounded retries.
// Non-retryable errors abort immediately without consuming remaining
// attempts. The surfaced error carries the operation name, attempt count,
// and original cause.
func (e *Executor) Execute(ctx context.Context, name string, op Operation) error {
	cb := e.breakers.Get(name)

	if !cb.Allow() {
		e.logger.Printf("[RESILIENCE] Circuit open for %q, rejecting call", name)
		return &StandardizedError{
			Operation: name,
			Attempts:  0,
			Retryable: false,
			Err:       ErrCircuitOpen,
		}
	}

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= e.retry.MaxRetries; attempt++ {
		if attempt > 1 {
			delay := e.backoffDelay(attempt)
			e.logger.Printf("[RESILIENCE] %q attempt %d/%d after %v", name, attempt, e.retry.MaxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				cb.RecordFailure()
				return &StandardizedError{
					Operation: name,
					Attempts:  attempts,
					Retryable: false,
					Err:       ctx.Err(),
				}
			}
		}

		attempts = attempt
		lastErr = op(ctx)
		if lastErr == nil {
			cb.RecordSuccess()
			return nil
		}

		if !IsRetryable(lastErr) {
			e.logger.Printf("[RESILIENCE] %q failed with terminal error: %v", name, lastErr)
			cb.RecordFailure()
			return &StandardizedError{
				Operation: name,
				Attempts:  attempts,
				Retryable: false,
				Err:       lastErr,
			}
		}
	}

	e.logger.Printf("[RESILIENCE] %q exhausted %d attempts: %v", name, attempts, lastErr)
	cb.RecordFailure()
	return &StandardizedError{
		Operation: name,
		Attempts:  attempts,
		Retryable: true,
		Err:       lastErr,
	}
}

// RunParallel executes all operations concurrently and returns every result.
// No fail-fast: one operation's failure never cancels the others.
func (e *Executor) RunParallel(ctx context.Context, ops []NamedOperation) []ParallelResult {
	results := make([]ParallelResult, len(ops))

	var g errgroup.Group
	for i, named := range ops {
		i, named := i, named
		g.Go(func() error {
			results[i] = ParallelResult{
				Name: named.Name,
				Err:  e.Execute(ctx, named.Name, named.Op),
			}
			return nil
		})
	}

	// Goroutines never return errors; Wait is just the join point.
	_ = g.Wait()

	return results
}

// backoffDelay computes min(baseDelay * multiplier^(attempt-1), maxDelay)
// for the wait preceding the given attempt.
func (e *Executor) backoffDelay(attempt int) time.Duration {
	multiplier := e.retry.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	delay := float64(e.retry.BaseDelay) * math.Pow(multiplier, float64(attempt-2))
	if max := float64(e.retry.MaxDelay); e.retry.MaxDelay > 0 && delay > max {
		delay = max
	}
	return time.Duration(delay)
}
