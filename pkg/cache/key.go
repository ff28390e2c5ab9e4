package cache

import (
	"sort"
	"strings"

	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// keyPrefix namespaces every key written by this package.
const keyPrefix = "remote"

// Key identifies a cached response.
type Key struct {
	// Method is the upper-cased HTTP method.
	Method string

	// URL is the request URL without the query parameters held in Query.
	URL string

	// Query are the request parameters appended to URL.
	Query transport.Params
}

// KeyFor derives the cache key of a request.
func KeyFor(cfg transport.RequestConfig) Key {
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = "GET"
	}
	return Key{
		Method: method,
		URL:    cfg.URL,
		Query:  cfg.Query,
	}
}

// String generates a deterministic cache key string. Query parameters are
// sorted and query-escaped, so the same parameters merged in a different
// order share a key while distinct values never collide. The query segment
// is always present and never contains a colon.
// Format: remote:METHOD:url:param1=val1&param2=val2
//
// Example:
//
//	remote:GET:https://api.example.com/search:page=2&query=cats
func (k Key) String() string {
	keys := k.Query.Keys()
	sort.Strings(keys)

	var sorted transport.Params
	for _, name := range keys {
		value, _ := k.Query.Get(name)
		sorted.Set(name, value)
	}

	return strings.Join([]string{keyPrefix, k.Method, k.URL, sorted.Encode()}, ":")
}
