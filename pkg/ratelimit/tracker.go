package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/remote-requests/pkg/response"
)

// Prometheus metrics for rate limit tracking.
var (
	remainingGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "remote_ratelimit_remaining",
		Help: "Requests remaining in the current provider rate limit window",
	})

	waitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remote_ratelimit_waits_total",
		Help: "Total number of requests delayed until the rate limit window reset",
	})
)

// DefaultMaxWait caps a single gate wait.
const DefaultMaxWait = 60 * time.Second

// Gate delays the next request while the last response reported an
// exhausted rate limit.
type Gate struct {
	reader  *Reader
	maxWait time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// NewGate creates a gate. A maxWait of 0 uses DefaultMaxWait.
func NewGate(reader *Reader, maxWait time.Duration, logger zerolog.Logger) *Gate {
	if reader == nil {
		reader = NewReader(HeaderNames{})
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Gate{
		reader:  reader,
		maxWait: maxWait,
		logger:  logger,
		now:     time.Now,
	}
}

// Reader returns the snapshot reader used by the gate.
func (g *Gate) Reader() *Reader {
	return g.reader
}

// Wait blocks until the window reported by headers resets, capped at the
// gate's maximum wait. It returns immediately when requests remain or the
// reset time is unknown, and returns the context error if ctx ends first.
func (g *Gate) Wait(ctx context.Context, headers response.Headers) error {
	snapshot := g.reader.Read(headers)
	if !snapshot.Exhausted() {
		return nil
	}

	wait := snapshot.WaitDuration(g.now())
	if wait > g.maxWait {
		wait = g.maxWait
	}
	if wait == 0 {
		return nil
	}

	g.logger.Warn().
		Dur("wait_duration", wait).
		Msg("Rate limit exhausted - waiting for reset")
	waitsTotal.Inc()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
