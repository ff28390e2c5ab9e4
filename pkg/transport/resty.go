package transport

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/remote-requests/pkg/response"
)

// RestyTransport fetches with a full-featured resty client. The exchange is
// reassembled into a single wire payload and split at the first blank line,
// so header capture does not depend on the client separating headers.
type RestyTransport struct {
	logger zerolog.Logger
}

// NewRestyTransport creates a client-style transport.
func NewRestyTransport(logger zerolog.Logger) *RestyTransport {
	return &RestyTransport{logger: logger.With().Str("approach", "client").Logger()}
}

// newRestyClient creates a resty client whose connect and overall timeouts
// follow the request timeout. GET payloads are sent as the stream transport
// sends them.
func newRestyClient(cfg RequestConfig) *resty.Client {
	c := resty.New()
	c.SetTransport(newRoundTripper(cfg.Timeout))
	c.SetTimeout(cfg.Timeout)
	c.SetAllowGetMethodPayload(true)
	return c
}

// Fetch performs the request described by cfg.
func (t *RestyTransport) Fetch(ctx context.Context, cfg RequestConfig) (*RawResponse, error) {
	fullURL := cfg.FullURL()
	verb := method(cfg)
	t.logger.Debug().Str("method", verb).Str("url", fullURL).Msg("Dispatching request")

	req := newRestyClient(cfg).R().SetContext(ctx)
	applyHeaders(cfg.Headers, func(name, value string) {
		req.SetHeader(name, value)
	})
	if cfg.Body != nil {
		req.SetBody(cfg.Body)
	}

	resp, err := req.Execute(verb, fullURL)
	if err != nil {
		return nil, newError(verb, fullURL, 0, err)
	}
	if resp.RawResponse == nil {
		return nil, newError(verb, fullURL, 0, errNoResponse)
	}

	payload := append([]byte(wireHeaderBlock(resp.RawResponse)), resp.Body()...)
	lines, body := response.SplitHeaderBlock(payload)

	if !cfg.IgnoreErrors && !isSuccess(resp.StatusCode()) {
		return nil, newError(verb, fullURL, resp.StatusCode(), nil)
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode(),
		HeaderLines: lines,
		Body:        body,
	}, nil
}
