package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/remote-requests/pkg/response"
)

// StreamTransport fetches with a plain net/http client, reading the body as
// a single stream. Headers are captured from the parsed response.
type StreamTransport struct {
	logger zerolog.Logger
}

// NewStreamTransport creates a stream-style transport.
func NewStreamTransport(logger zerolog.Logger) *StreamTransport {
	return &StreamTransport{logger: logger.With().Str("approach", "streams").Logger()}
}

// Fetch performs the request described by cfg.
func (t *StreamTransport) Fetch(ctx context.Context, cfg RequestConfig) (*RawResponse, error) {
	fullURL := cfg.FullURL()
	t.logger.Debug().Str("method", method(cfg)).Str("url", fullURL).Msg("Dispatching request")

	req, err := newHTTPRequest(ctx, cfg)
	if err != nil {
		return nil, newError("build request", fullURL, 0, err)
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: newRoundTripper(cfg.Timeout),
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, newError(req.Method, fullURL, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError("read body", fullURL, resp.StatusCode, err)
	}

	if !cfg.IgnoreErrors && !isSuccess(resp.StatusCode) {
		return nil, newError(req.Method, fullURL, resp.StatusCode, nil)
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode,
		HeaderLines: response.SplitHeaderLines(wireHeaderBlock(resp)),
		Body:        body,
	}, nil
}
