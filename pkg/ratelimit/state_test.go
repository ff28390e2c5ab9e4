package ratelimit

import (
	"testing"
	"time"

	"github.com/Sternrassler/remote-requests/pkg/response"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func headersFrom(lines ...string) response.Headers {
	return response.FormatHeaders(lines)
}

func TestReader_Read(t *testing.T) {
	tests := []struct {
		name          string
		headers       response.Headers
		wantRemaining *int
		wantLimit     *int
		wantReset     *string
	}{
		{
			name:          "all headers present",
			headers:       headersFrom("X-RateLimit-Remaining: 42", "X-RateLimit-Limit: 50", "X-RateLimit-Reset: 1717000000"),
			wantRemaining: intPtr(42),
			wantLimit:     intPtr(50),
			wantReset:     strPtr("1717000000"),
		},
		{
			name:          "case insensitive names",
			headers:       headersFrom("x-ratelimit-remaining: 0", "X-RATELIMIT-LIMIT: 10"),
			wantRemaining: intPtr(0),
			wantLimit:     intPtr(10),
		},
		{
			name:    "no headers",
			headers: headersFrom("HTTP/1.1 200 OK", "Content-Type: application/json"),
		},
		{
			name:      "non-integer values",
			headers:   headersFrom("X-RateLimit-Remaining: lots", "X-RateLimit-Limit: 1.5", "X-RateLimit-Reset: soon"),
			wantReset: strPtr("soon"),
		},
	}

	reader := NewReader(HeaderNames{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := reader.Read(tt.headers)

			if !equalInt(s.Remaining, tt.wantRemaining) {
				t.Errorf("Remaining = %v, want %v", deref(s.Remaining), deref(tt.wantRemaining))
			}
			if !equalInt(s.Limit, tt.wantLimit) {
				t.Errorf("Limit = %v, want %v", deref(s.Limit), deref(tt.wantLimit))
			}
			if (s.Reset == nil) != (tt.wantReset == nil) || (s.Reset != nil && *s.Reset != *tt.wantReset) {
				t.Errorf("Reset = %v, want %v", s.Reset, tt.wantReset)
			}
		})
	}
}

func TestReader_CustomHeaderNames(t *testing.T) {
	reader := NewReader(HeaderNames{Remaining: "RateLimit-Remaining"})

	names := reader.HeaderNames()
	if names.Remaining != "RateLimit-Remaining" || names.Limit != DefaultLimitHeader || names.Reset != DefaultResetHeader {
		t.Errorf("HeaderNames() = %+v", names)
	}

	s := reader.Read(headersFrom("RateLimit-Remaining: 7", "X-RateLimit-Remaining: 99"))
	if !equalInt(s.Remaining, intPtr(7)) {
		t.Errorf("Remaining = %v, want 7", deref(s.Remaining))
	}
}

func TestReader_ReadsCurrentHeadersOnly(t *testing.T) {
	reader := NewReader(HeaderNames{})

	first := reader.Read(headersFrom("X-RateLimit-Remaining: 5"))
	second := reader.Read(headersFrom("X-RateLimit-Remaining: 4"))
	third := reader.Read(response.Headers{})

	if *first.Remaining != 5 || *second.Remaining != 4 || third.Remaining != nil {
		t.Errorf("snapshots = %v %v %v", deref(first.Remaining), deref(second.Remaining), deref(third.Remaining))
	}
}

func TestSnapshot_Exhausted(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		expected bool
	}{
		{"unknown", Snapshot{}, false},
		{"remaining", Snapshot{Remaining: intPtr(3)}, false},
		{"zero", Snapshot{Remaining: intPtr(0)}, true},
		{"negative", Snapshot{Remaining: intPtr(-1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snapshot.Exhausted(); got != tt.expected {
				t.Errorf("Exhausted() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSnapshot_Known(t *testing.T) {
	if (Snapshot{}).Known() {
		t.Error("empty snapshot should not be known")
	}
	if !(Snapshot{Reset: strPtr("30")}).Known() {
		t.Error("snapshot with reset should be known")
	}
}

func TestSnapshot_WaitDuration(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name     string
		reset    *string
		expected time.Duration
	}{
		{"unknown reset", nil, 0},
		{"non numeric", strPtr("Tue, 01 Jan 2030"), 0},
		{"relative seconds", strPtr("30"), 30 * time.Second},
		{"epoch in the future", strPtr("1700000090"), 90 * time.Second},
		{"epoch in the past", strPtr("1699999000"), 0},
		{"zero", strPtr("0"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Snapshot{Reset: tt.reset}
			if got := s.WaitDuration(now); got != tt.expected {
				t.Errorf("WaitDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
