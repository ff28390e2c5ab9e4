// Package transport performs single HTTP requests for the remote request
// client. Two interchangeable strategies are provided: a plain net/http
// stream fetch and a resty-based client fetch. Neither retries.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/remote-requests/pkg/response"
)

// RequestConfig describes one outbound request.
type RequestConfig struct {
	URL    string
	Method string
	Query  Params
	Body   []byte

	// Timeout bounds both connection setup and the whole exchange.
	Timeout time.Duration

	// Headers are "Name: value" lines sent with the request, in order.
	Headers []string

	// IgnoreErrors returns non-2xx responses as regular responses instead of
	// failing with a TransportError.
	IgnoreErrors bool
}

// FullURL returns the URL with the query params appended.
func (c RequestConfig) FullURL() string {
	return BuildURL(c.URL, c.Query)
}

// Clone returns a copy that shares nothing mutable with c.
func (c RequestConfig) Clone() RequestConfig {
	out := c
	out.Query = c.Query.Clone()
	if c.Body != nil {
		out.Body = append([]byte(nil), c.Body...)
	}
	if c.Headers != nil {
		out.Headers = append([]string(nil), c.Headers...)
	}
	return out
}

// RawResponse is the unparsed result of a transport call.
type RawResponse struct {
	StatusCode  int
	HeaderLines []string
	Body        []byte
}

// Clone returns a deep copy of r.
func (r *RawResponse) Clone() *RawResponse {
	if r == nil {
		return nil
	}
	return &RawResponse{
		StatusCode:  r.StatusCode,
		HeaderLines: append([]string(nil), r.HeaderLines...),
		Body:        append([]byte(nil), r.Body...),
	}
}

// Transport performs one HTTP request.
type Transport interface {
	Fetch(ctx context.Context, cfg RequestConfig) (*RawResponse, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, cfg RequestConfig) (*RawResponse, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, cfg RequestConfig) (*RawResponse, error) {
	return f(ctx, cfg)
}

func method(cfg RequestConfig) string {
	if cfg.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(cfg.Method)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// newRoundTripper builds a non-pooling transport whose dial timeout follows
// the request timeout.
func newRoundTripper(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: timeout,
		DisableKeepAlives:   true,
	}
}

func newHTTPRequest(ctx context.Context, cfg RequestConfig) (*http.Request, error) {
	var body io.Reader
	if cfg.Body != nil {
		body = bytes.NewReader(cfg.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method(cfg), cfg.FullURL(), body)
	if err != nil {
		return nil, err
	}
	applyHeaders(cfg.Headers, req.Header.Set)
	return req, nil
}

func applyHeaders(lines []string, set func(name, value string)) {
	for _, line := range lines {
		if name, value, ok := response.ParseHeaderLine(line); ok {
			set(name, value)
		}
	}
}

// wireHeaderBlock renders the status line and headers the way they appear on
// the wire, terminated by the blank line.
func wireHeaderBlock(resp *http.Response) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s\r\n", resp.Proto, resp.Status)
	_ = resp.Header.Write(&b)
	b.WriteString("\r\n")
	return b.String()
}
