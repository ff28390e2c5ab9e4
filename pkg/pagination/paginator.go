package pagination

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// Approach selects how the next request is positioned.
type Approach string

const (
	// ApproachPages sends page and per_page parameters.
	ApproachPages Approach = "pages"

	// ApproachOffset sends provider-specific offset parameters.
	ApproachOffset Approach = "offset"
)

const (
	// DefaultLimit is the default number of objects to collect.
	DefaultLimit = 40

	// DefaultMaxPerRequest is the default provider page size.
	DefaultMaxPerRequest = 40

	// ParamPage and ParamPerPage are the query keys used in page mode.
	ParamPage    = "page"
	ParamPerPage = "per_page"
)

// ErrInvalidState is returned when Limit or MaxPerRequest is not positive.
var ErrInvalidState = errors.New("invalid pagination state")

// ParseApproach converts a configured approach name.
func ParseApproach(s string) (Approach, error) {
	switch Approach(strings.ToLower(strings.TrimSpace(s))) {
	case ApproachPages, "":
		return ApproachPages, nil
	case ApproachOffset:
		return ApproachOffset, nil
	default:
		return "", fmt.Errorf("%w: unknown approach %q", ErrInvalidState, s)
	}
}

// State is the pagination position of a client.
type State struct {
	Limit         int
	MaxPerRequest int
	Offset        int
	Approach      Approach
}

// DefaultState returns the default pagination state.
func DefaultState() State {
	return State{
		Limit:         DefaultLimit,
		MaxPerRequest: DefaultMaxPerRequest,
		Approach:      ApproachPages,
	}
}

// Validate checks that the page size can be computed.
func (s State) Validate() error {
	if s.Limit < 1 {
		return fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidState, s.Limit)
	}
	if s.MaxPerRequest < 1 {
		return fmt.Errorf("%w: max per request must be >= 1, got %d", ErrInvalidState, s.MaxPerRequest)
	}
	return nil
}

// ResultsPerRequest returns min(Limit, MaxPerRequest).
func (s State) ResultsPerRequest() int {
	return min(s.Limit, s.MaxPerRequest)
}

// NormalizedOffset rounds the absolute offset down to a multiple of the page
// size.
func (s State) NormalizedOffset() int {
	rpp := s.ResultsPerRequest()
	if rpp < 1 {
		return 0
	}
	offset := s.Offset
	if offset < 0 {
		offset = -offset
	}
	return (offset / rpp) * rpp
}

// Page returns the 1-indexed page the offset falls into.
func (s State) Page() int {
	rpp := s.ResultsPerRequest()
	if rpp < 1 {
		return 1
	}
	return s.NormalizedOffset()/rpp + 1
}

// Misalignment is the number of leading items of the current page that lie
// before the offset.
func (s State) Misalignment() int {
	rpp := s.ResultsPerRequest()
	if rpp < 1 {
		return 0
	}
	mod := s.Offset % rpp
	if mod < 0 {
		mod = -mod
	}
	return mod
}

// Paginator holds a State and produces the request parameters for it.
type Paginator struct {
	State

	// OffsetParams names the query parameters in offset mode. Without it
	// nothing is merged in that mode.
	OffsetParams func(State) map[string]string
}

// New creates a paginator for a validated state.
func New(state State) (*Paginator, error) {
	if state.Approach == "" {
		state.Approach = ApproachPages
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &Paginator{State: state}, nil
}

// SetLimit sets the number of objects to collect.
func (p *Paginator) SetLimit(limit int) { p.Limit = limit }

// SetMaxPerRequest sets the provider page size.
func (p *Paginator) SetMaxPerRequest(n int) { p.MaxPerRequest = n }

// SetOffset sets the position of the next request.
func (p *Paginator) SetOffset(offset int) { p.Offset = offset }

// SetPaginationApproach switches between page and offset mode.
func (p *Paginator) SetPaginationApproach(a Approach) { p.Approach = a }

// Advance moves the offset forward by n objects.
func (p *Paginator) Advance(n int) { p.Offset += n }

// PaginationState returns a copy of the current state.
func (p *Paginator) PaginationState() State { return p.State }

// RequestParams returns the pagination parameters for the next request.
func (p *Paginator) RequestParams() transport.Params {
	if p.Approach == ApproachOffset {
		if p.OffsetParams == nil {
			return transport.Params{}
		}
		return transport.ParamsFromMap(p.OffsetParams(p.State))
	}

	return transport.NewParams(
		ParamPage, fmt.Sprint(p.Page()),
		ParamPerPage, fmt.Sprint(p.ResultsPerRequest()),
	)
}

// Apply merges the pagination parameters into params, overriding caller
// values with the same keys.
func (p *Paginator) Apply(params *transport.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	params.Merge(p.RequestParams())
	return nil
}
