// Package metrics provides the Prometheus gatherer scraped by the remote
// request client's metrics endpoint. All metrics are defined in their respective packages
// (client, retry, search, cache, ratelimit) to keep packages modular and
// avoid circular dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer exposes the default registry, which promauto registers every
// metric below into, for scraping (see cmd/remote-fetch).
var Gatherer = prometheus.DefaultGatherer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - remote_requests_total{approach, outcome} (Counter): Get cycles by transport strategy and outcome (ok, exhausted)
//   - remote_request_duration_seconds{approach} (Histogram): Get cycle duration including retries
//   - remote_errors_total{class} (Counter): Failed attempts by class (client, server, rate_limit, network, unknown)
//
// Retry Metrics (pkg/retry):
//   - remote_retries_total{operation} (Counter): Retry attempts after a failure
//   - remote_retry_recovered_total{operation} (Counter): Operations that succeeded after at least one failure
//   - remote_retry_exhausted_total{operation} (Counter): Operations that failed on every attempt
//
// Search Metrics (pkg/search):
//   - remote_search_pages_total (Counter): Pages requested by the search aggregator
//   - remote_search_results (Histogram): Result count per completed search
//
// Rate Limit Metrics (pkg/ratelimit):
//   - remote_ratelimit_remaining (Gauge): Last seen remaining request budget
//   - remote_ratelimit_waits_total (Counter): Waits for a rate limit window reset
//
// Cache Metrics (pkg/cache):
//   - remote_cache_hits_total (Counter): Responses served from Redis
//   - remote_cache_misses_total (Counter): Cache misses
//   - remote_cache_stored_bytes_total (Counter): Encoded bytes written to Redis
//   - remote_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Retry exhaustion rate
//   rate(remote_retry_exhausted_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(remote_request_duration_seconds_bucket[5m]))
//
//   # Cache hit rate
//   sum(rate(remote_cache_hits_total[5m])) /
//   (sum(rate(remote_cache_hits_total[5m])) + sum(rate(remote_cache_misses_total[5m])))
