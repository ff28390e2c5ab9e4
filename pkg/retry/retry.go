// Package retry runs an operation up to a fixed number of attempts with a
// constant delay between them, reporting each failure through log hooks.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/remote-requests/pkg/logging"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_retries_total",
		Help: "Total number of failed attempts by operation",
	}, []string{"operation"})

	retryRecoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_retry_recovered_total",
		Help: "Total number of operations that succeeded after at least one failed attempt",
	}, []string{"operation"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_retry_exhausted_total",
		Help: "Total number of times all attempts of an operation failed",
	}, []string{"operation"})
)

const (
	// DefaultMaxAttempts is the number of attempts per request cycle.
	DefaultMaxAttempts = 2

	// DefaultDelay is the pause between two attempts.
	DefaultDelay = 2000 * time.Millisecond
)

// Policy holds the configuration for one retry cycle.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the fixed pause between attempts. Negative values are treated as 0.
	Delay time.Duration

	// ShouldLog decides whether a failed attempt is reported. Nil reports all.
	ShouldLog logging.Predicate

	// Log receives failure, recovery and exhaustion records. Nil uses the
	// process-wide zerolog logger.
	Log logging.Func

	// Trace receives failure records carrying the formatted error stack.
	Trace logging.Func

	// Operation labels log records and metrics.
	Operation string
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Operation:   "request",
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) delay() time.Duration {
	if p.Delay < 0 {
		return 0
	}
	return p.Delay
}

func (p Policy) sink() logging.Func {
	if p.Log == nil {
		return logging.DefaultSink()
	}
	return p.Log
}

func (p Policy) operation() string {
	if p.Operation == "" {
		return "request"
	}
	return p.Operation
}

// Do executes op until it succeeds or the attempts are exhausted. It returns
// the successful value and true, or the zero value and false. Errors from op
// are reported to the policy's hooks and never returned.
//
// A cancelled context stops the loop; the pending attempt counts as the last.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, bool) {
	var zero T

	maxAttempts := p.attempts()
	delay := p.delay()
	sink := p.sink()
	operation := p.operation()

	for attempt := 1; ; attempt++ {
		value, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				retryRecoveredTotal.WithLabelValues(operation).Inc()
				sink(logging.Record{
					Level:     zerolog.InfoLevel,
					Message:   fmt.Sprintf("recovered on attempt %d", attempt),
					Operation: operation,
					Attempt:   attempt,
				})
			}
			return value, true
		}

		retriesTotal.WithLabelValues(operation).Inc()
		p.reportFailure(sink, operation, attempt, err)

		if attempt >= maxAttempts || !wait(ctx, delay) {
			retryExhaustedTotal.WithLabelValues(operation).Inc()
			sink(logging.Record{
				Level:     zerolog.ErrorLevel,
				Message:   fmt.Sprintf("all %d attempts failed", attempt),
				Operation: operation,
				Attempt:   attempt,
				Err:       err,
			})
			return zero, false
		}
	}
}

func (p Policy) reportFailure(sink logging.Func, operation string, attempt int, err error) {
	if p.ShouldLog != nil && !p.ShouldLog(err) {
		return
	}

	record := logging.Record{
		Level:     zerolog.ErrorLevel,
		Message:   fmt.Sprintf("attempt %d failed", attempt),
		Operation: operation,
		Attempt:   attempt,
		Err:       err,
	}
	sink(record)

	if p.Trace != nil {
		record.Trace = fmt.Sprintf("%+v", err)
		p.Trace(record)
	}
}

// wait sleeps for d and reports whether the context is still live.
func wait(ctx context.Context, d time.Duration) bool {
	if d == 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
