package client

import (
	"context"

	"github.com/Sternrassler/remote-requests/pkg/pagination"
	"github.com/Sternrassler/remote-requests/pkg/ratelimit"
	"github.com/Sternrassler/remote-requests/pkg/response"
)

// Requester runs request cycles and exposes the last response headers.
type Requester interface {
	Get(ctx context.Context) (response.Parsed, error)
	FormattedHeaders() response.Headers
}

// Paginator is a requester that positions each cycle on a page.
type Paginator interface {
	Requester
	PaginationState() pagination.State
	SetOffset(offset int)
	SetLimit(limit int)
}

// RateLimitReader exposes the rate limits reported by the last response.
type RateLimitReader interface {
	RateLimits() ratelimit.Snapshot
}

// Searcher runs a query across as many pages as needed.
type Searcher interface {
	Search(ctx context.Context, query string) ([]any, error)
}

var (
	_ Requester       = (*Client)(nil)
	_ Paginator       = (*Paginated)(nil)
	_ RateLimitReader = (*RateLimited)(nil)
	_ Paginator       = (*RateLimitedPaginated)(nil)
	_ RateLimitReader = (*RateLimitedPaginated)(nil)
)
