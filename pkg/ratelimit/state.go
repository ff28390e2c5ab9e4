// Package ratelimit reads provider rate-limit headers from the most recent
// response and gates the next request when the window is exhausted.
package ratelimit

import (
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/remote-requests/pkg/response"
)

// Default header names. Lookups are case-insensitive.
const (
	DefaultRemainingHeader = "X-RateLimit-Remaining"
	DefaultLimitHeader     = "X-RateLimit-Limit"
	DefaultResetHeader     = "X-RateLimit-Reset"
)

// epochThreshold separates absolute reset timestamps from relative ones.
// Values above it are Unix seconds; values at or below it count seconds
// from now.
const epochThreshold = 1_000_000_000

// HeaderNames configures which response headers carry the rate-limit values.
type HeaderNames struct {
	Remaining string
	Limit     string
	Reset     string
}

// DefaultHeaderNames returns the X-RateLimit-* header names.
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		Remaining: DefaultRemainingHeader,
		Limit:     DefaultLimitHeader,
		Reset:     DefaultResetHeader,
	}
}

func (n HeaderNames) withDefaults() HeaderNames {
	d := DefaultHeaderNames()
	if n.Remaining == "" {
		n.Remaining = d.Remaining
	}
	if n.Limit == "" {
		n.Limit = d.Limit
	}
	if n.Reset == "" {
		n.Reset = d.Reset
	}
	return n
}

// Snapshot is the rate-limit state reported by one response. Fields are nil
// when the header was absent or, for the integer fields, not an integer.
type Snapshot struct {
	Remaining *int    `json:"remaining"`
	Limit     *int    `json:"limit"`
	Reset     *string `json:"reset"`
}

// Known reports whether any rate-limit header was present.
func (s Snapshot) Known() bool {
	return s.Remaining != nil || s.Limit != nil || s.Reset != nil
}

// Exhausted returns true if the provider reported no remaining requests.
func (s Snapshot) Exhausted() bool {
	return s.Remaining != nil && *s.Remaining <= 0
}

// ResetSeconds interprets the reset value as an integer when possible.
func (s Snapshot) ResetSeconds() (int64, bool) {
	if s.Reset == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(*s.Reset), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// WaitDuration returns how long to wait from now until the window resets.
// Returns 0 if the reset is unknown, not numeric or already passed.
func (s Snapshot) WaitDuration(now time.Time) time.Duration {
	secs, ok := s.ResetSeconds()
	if !ok || secs <= 0 {
		return 0
	}

	if secs > epochThreshold {
		d := time.Unix(secs, 0).Sub(now)
		if d < 0 {
			return 0
		}
		return d
	}
	return time.Duration(secs) * time.Second
}

// Reader extracts snapshots from formatted response headers.
type Reader struct {
	names HeaderNames
}

// NewReader creates a reader for the given header names. Empty names fall
// back to the defaults.
func NewReader(names HeaderNames) *Reader {
	return &Reader{names: names.withDefaults()}
}

// HeaderNames returns the header names in use.
func (r *Reader) HeaderNames() HeaderNames {
	return r.names
}

// Read builds a snapshot from headers. It never caches: every call reflects
// exactly the headers passed in.
func (r *Reader) Read(headers response.Headers) Snapshot {
	var s Snapshot

	if v, ok := headers.Get(r.names.Remaining); ok {
		s.Remaining = parseInt(v)
	}
	if v, ok := headers.Get(r.names.Limit); ok {
		s.Limit = parseInt(v)
	}
	if v, ok := headers.Get(r.names.Reset); ok {
		s.Reset = &v
	}

	if s.Remaining != nil {
		remainingGauge.Set(float64(*s.Remaining))
	}
	return s
}

func parseInt(v string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}
