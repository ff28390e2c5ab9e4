package transport

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params is an insertion-ordered string mapping used for query parameters.
// The zero value is ready to use.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds Params from alternating key/value pairs. A trailing key
// without a value is ignored.
func NewParams(kv ...string) Params {
	var p Params
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// ParamsFromMap builds Params from a map, ordering keys lexically so the
// result is deterministic.
func ParamsFromMap(m map[string]string) Params {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var p Params
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Set stores value under key. An existing key keeps its position.
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// SetInt stores an integer value under key.
func (p *Params) SetInt(key string, value int) {
	p.Set(key, strconv.Itoa(value))
}

// Get returns the value stored under key.
func (p Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Del removes key.
func (p *Params) Del(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Merge applies other on top of p: values for existing keys are overridden,
// new keys are appended in other's order.
func (p *Params) Merge(other Params) {
	for _, k := range other.keys {
		p.Set(k, other.values[k])
	}
}

// Len returns the number of keys.
func (p Params) Len() int {
	return len(p.keys)
}

// Keys returns the keys in insertion order.
func (p Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	var c Params
	c.Merge(p)
	return c
}

// Encode renders the params as a query string in insertion order.
func (p Params) Encode() string {
	if len(p.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[k]))
	}
	return b.String()
}

// BuildURL appends the encoded params to rawURL, using "&" when rawURL
// already carries a query string.
func BuildURL(rawURL string, params Params) string {
	query := params.Encode()
	if query == "" {
		return rawURL
	}
	switch {
	case !strings.Contains(rawURL, "?"):
		return rawURL + "?" + query
	case strings.HasSuffix(rawURL, "?"), strings.HasSuffix(rawURL, "&"):
		return rawURL + query
	default:
		return rawURL + "&" + query
	}
}
