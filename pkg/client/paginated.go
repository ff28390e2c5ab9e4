package client

import (
	"context"
	"time"

	"github.com/Sternrassler/remote-requests/pkg/pagination"
	"github.com/Sternrassler/remote-requests/pkg/ratelimit"
	"github.com/Sternrassler/remote-requests/pkg/response"
	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// Paginated is a client whose request cycles carry pagination parameters.
// Responses are always decoded as JSON.
type Paginated struct {
	*Client
	*pagination.Paginator
}

// NewPaginated creates a paginated client.
func NewPaginated(cfg Config, state pagination.State) (*Paginated, error) {
	cfg.ExpectedResponseFormat = response.ContentTypeJSON

	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	p, err := pagination.New(state)
	if err != nil {
		return nil, err
	}

	return &Paginated{Client: c, Paginator: p}, nil
}

// Get runs one request cycle for the current page. The pagination
// parameters override request data with the same keys for this cycle only.
func (p *Paginated) Get(ctx context.Context) (response.Parsed, error) {
	p.SetExpectedResponseFormat(response.ContentTypeJSON)
	return p.Client.get(ctx, func(cfg *transport.RequestConfig) error {
		return p.Paginator.Apply(&cfg.Query)
	})
}

// rateLimits reads the snapshot of the last response and optionally waits
// for an exhausted window to reset before the next cycle.
type rateLimits struct {
	reader *ratelimit.Reader
	gate   *ratelimit.Gate
}

func (r *rateLimits) snapshot(headers response.Headers) ratelimit.Snapshot {
	return r.reader.Read(headers)
}

func (r *rateLimits) wait(ctx context.Context, headers response.Headers) error {
	if r.gate == nil {
		return nil
	}
	return r.gate.Wait(ctx, headers)
}

// RateLimited is a client exposing the provider's rate-limit headers.
type RateLimited struct {
	*Client
	limits rateLimits
}

// NewRateLimited creates a rate-limit-aware client. Empty header names use
// the X-RateLimit-* defaults.
func NewRateLimited(cfg Config, names ratelimit.HeaderNames) (*RateLimited, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &RateLimited{
		Client: c,
		limits: rateLimits{reader: ratelimit.NewReader(names)},
	}, nil
}

// RateLimits returns the rate limits reported by the last successful
// response. It is computed on every call.
func (r *RateLimited) RateLimits() ratelimit.Snapshot {
	return r.limits.snapshot(r.FormattedHeaders())
}

// WaitOnExhaustion makes Get wait, at most maxWait, for an exhausted window
// to reset. A maxWait of 0 uses ratelimit.DefaultMaxWait.
func (r *RateLimited) WaitOnExhaustion(maxWait time.Duration) {
	r.limits.gate = ratelimit.NewGate(r.limits.reader, maxWait, r.logger)
}

// Get runs one request cycle, first waiting for the rate limit window when
// enabled and exhausted.
func (r *RateLimited) Get(ctx context.Context) (response.Parsed, error) {
	if err := r.limits.wait(ctx, r.FormattedHeaders()); err != nil {
		return response.None, err
	}
	return r.Client.Get(ctx)
}

// RateLimitedPaginated combines pagination with rate-limit awareness.
type RateLimitedPaginated struct {
	*Paginated
	limits rateLimits
}

// NewRateLimitedPaginated creates a paginated, rate-limit-aware client.
func NewRateLimitedPaginated(cfg Config, state pagination.State, names ratelimit.HeaderNames) (*RateLimitedPaginated, error) {
	p, err := NewPaginated(cfg, state)
	if err != nil {
		return nil, err
	}
	return &RateLimitedPaginated{
		Paginated: p,
		limits:    rateLimits{reader: ratelimit.NewReader(names)},
	}, nil
}

// RateLimits returns the rate limits reported by the last successful
// response.
func (r *RateLimitedPaginated) RateLimits() ratelimit.Snapshot {
	return r.limits.snapshot(r.FormattedHeaders())
}

// WaitOnExhaustion makes Get wait, at most maxWait, for an exhausted window
// to reset.
func (r *RateLimitedPaginated) WaitOnExhaustion(maxWait time.Duration) {
	r.limits.gate = ratelimit.NewGate(r.limits.reader, maxWait, r.logger)
}

// Get runs one request cycle for the current page.
func (r *RateLimitedPaginated) Get(ctx context.Context) (response.Parsed, error) {
	if err := r.limits.wait(ctx, r.FormattedHeaders()); err != nil {
		return response.None, err
	}
	return r.Paginated.Get(ctx)
}
