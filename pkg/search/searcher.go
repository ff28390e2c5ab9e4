package search

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/remote-requests/pkg/client"
	"github.com/Sternrassler/remote-requests/pkg/logging"
	"github.com/Sternrassler/remote-requests/pkg/pagination"
	"github.com/Sternrassler/remote-requests/pkg/response"
)

// Prometheus metrics for search aggregation.
var (
	pagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remote_search_pages_total",
		Help: "Total number of pages requested by searches",
	})

	resultsPerSearch = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "remote_search_results",
		Help:    "Number of results returned per search",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
)

const (
	// DefaultQueryParam carries the search query.
	DefaultQueryParam = "query"

	// OriginalQueryKey is added to every object result by the default
	// formatter.
	OriginalQueryKey = "original_query"
)

var (
	// ErrNoRequester is returned by New without a requester.
	ErrNoRequester = errors.New("search requester not set")

	// ErrResultsKeyNotSet is returned by New without a results key.
	ErrResultsKeyNotSet = errors.New("search results key not set")
)

// Requester is the paginated request surface a Searcher drives.
// *client.Paginated and *client.RateLimitedPaginated implement it.
type Requester interface {
	Get(ctx context.Context) (response.Parsed, error)
	SetURL(url string)
	SetRequestDataValue(key, value string)
	PaginationState() pagination.State
	SetOffset(offset int)
}

// FormatFunc post-processes the results of one page before they are
// accumulated.
type FormatFunc func(results []any, query string) []any

// Config configures a Searcher.
type Config struct {
	// URL of the search endpoint. Empty keeps the requester's URL.
	URL string

	// ResultsKey names the response field holding the result array.
	ResultsKey string

	// QueryParam carries the query. Defaults to DefaultQueryParam.
	QueryParam string

	// APIKeyParam and APIKey add a credential parameter when both are set.
	APIKeyParam string
	APIKey      string

	// Format defaults to IncludeOriginalQuery.
	Format FormatFunc

	Logger *zerolog.Logger
}

// Searcher runs a query across as many pages as its limit requires.
type Searcher struct {
	requester Requester
	cfg       Config
	logger    zerolog.Logger
}

var _ client.Searcher = (*Searcher)(nil)

// New creates a searcher driving requester.
func New(requester Requester, cfg Config) (*Searcher, error) {
	if requester == nil {
		return nil, ErrNoRequester
	}
	if cfg.ResultsKey == "" {
		return nil, ErrResultsKeyNotSet
	}
	if cfg.QueryParam == "" {
		cfg.QueryParam = DefaultQueryParam
	}
	if cfg.Format == nil {
		cfg.Format = IncludeOriginalQuery
	}

	logger := logging.NewLogger("remote-search")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Searcher{requester: requester, cfg: cfg, logger: logger}, nil
}

// SetAPIKey sets the credential sent with every page request.
func (s *Searcher) SetAPIKey(param, key string) {
	s.cfg.APIKeyParam = param
	s.cfg.APIKey = key
}

// Search requests pages for query until the pagination limit is reached or
// the provider returns fewer than MaxPerRequest results. Each page advances
// the requester's offset.
//
// A missing or empty result array, or a failed request cycle, ends the
// search with the results gathered so far. Errors returned by the requester
// (configuration problems, a cancelled context) are returned together with
// those results.
func (s *Searcher) Search(ctx context.Context, query string) ([]any, error) {
	if s.cfg.URL != "" {
		s.requester.SetURL(s.cfg.URL)
	}
	s.requester.SetRequestDataValue(s.cfg.QueryParam, query)
	if s.cfg.APIKeyParam != "" && s.cfg.APIKey != "" {
		s.requester.SetRequestDataValue(s.cfg.APIKeyParam, s.cfg.APIKey)
	}

	var accumulated []any
	pages := 0
	defer func() {
		resultsPerSearch.Observe(float64(len(accumulated)))
		s.logger.Info().
			Str("query", query).
			Int("pages", pages).
			Int("results", len(accumulated)).
			Msg("Search finished")
	}()

	for {
		state := s.requester.PaginationState()

		parsed, err := s.requester.Get(ctx)
		if err != nil {
			return accumulated, err
		}
		pages++
		pagesTotal.Inc()

		results := extractResults(parsed, s.cfg.ResultsKey)
		if len(results) == 0 {
			return accumulated, nil
		}
		fetched := len(results)

		results = s.cfg.Format(results, query)
		if mod := state.Misalignment(); mod > 0 {
			if mod > len(results) {
				mod = len(results)
			}
			results = results[mod:]
		}

		accumulated = append(accumulated, results...)
		if len(accumulated) >= state.Limit {
			accumulated = accumulated[:state.Limit]
			return accumulated, nil
		}
		if fetched < state.MaxPerRequest || len(results) == 0 {
			return accumulated, nil
		}

		s.requester.SetOffset(state.Offset + len(results))
	}
}

// extractResults returns the array stored under key, or nil.
func extractResults(parsed response.Parsed, key string) []any {
	obj, ok := parsed.Object()
	if !ok {
		return nil
	}
	results, _ := obj[key].([]any)
	return results
}

// IncludeOriginalQuery tags every object result with the query under
// OriginalQueryKey. Other results are left as they are.
func IncludeOriginalQuery(results []any, query string) []any {
	for _, r := range results {
		if obj, ok := r.(map[string]any); ok {
			obj[OriginalQueryKey] = query
		}
	}
	return results
}
