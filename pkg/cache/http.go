package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/remote-requests/pkg/response"
	"github.com/Sternrassler/remote-requests/pkg/transport"
)

const (
	// DefaultTTL is the fallback TTL when no freshness header is present
	DefaultTTL = 5 * time.Minute
)

// Cacheable reports whether a response with this status may be stored.
func Cacheable(status int) bool {
	return status >= 200 && status < 300
}

// ResponseToEntry converts a transport response to an Entry.
// It returns false if the response must not be stored: non-2xx status,
// Cache-Control no-store, or a freshness lifetime that has already ended.
func ResponseToEntry(raw *transport.RawResponse, now time.Time) (*Entry, bool) {
	if raw == nil || !Cacheable(raw.StatusCode) {
		return nil, false
	}

	headers := response.FormatHeaders(raw.HeaderLines)
	expires, ok := parseExpires(headers, now)
	if !ok || !expires.After(now) {
		return nil, false
	}

	return &Entry{
		StatusCode:  raw.StatusCode,
		HeaderLines: append([]string(nil), raw.HeaderLines...),
		Body:        append([]byte(nil), raw.Body...),
		Expires:     expires,
		CachedAt:    now,
	}, true
}

// parseExpires derives the expiry of a response from its headers.
// Cache-Control max-age wins over Expires. Returns false for no-store.
// Missing or unparseable headers yield now + DefaultTTL.
func parseExpires(headers response.Headers, now time.Time) (time.Time, bool) {
	if cc, ok := headers.Get("Cache-Control"); ok {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.ToLower(strings.TrimSpace(directive))
			switch {
			case directive == "no-store":
				return time.Time{}, false
			case strings.HasPrefix(directive, "max-age="):
				if secs, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil {
					return now.Add(time.Duration(secs) * time.Second), true
				}
			}
		}
	}

	expiresStr, ok := headers.Get("Expires")
	if !ok || expiresStr == "" {
		return now.Add(DefaultTTL), true
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(DefaultTTL), true
	}

	return expires, true
}
