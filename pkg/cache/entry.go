package cache

import (
	"time"

	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// Entry represents a cached response.
type Entry struct {
	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// HeaderLines are the captured header lines, status line first
	HeaderLines []string `json:"header_lines"`

	// Body is the response body
	Body []byte `json:"body"`

	// Expires is when the cache entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Raw converts the entry back into a transport response. The returned
// response shares no memory with the entry.
func (e *Entry) Raw() *transport.RawResponse {
	return &transport.RawResponse{
		StatusCode:  e.StatusCode,
		HeaderLines: append([]string(nil), e.HeaderLines...),
		Body:        append([]byte(nil), e.Body...),
	}
}
