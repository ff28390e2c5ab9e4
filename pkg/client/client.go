// Package client provides the retrying remote-resource client and its
// paginated and rate-limit-aware variants.
package client

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/remote-requests/pkg/cache"
	"github.com/Sternrassler/remote-requests/pkg/logging"
	"github.com/Sternrassler/remote-requests/pkg/response"
	"github.com/Sternrassler/remote-requests/pkg/retry"
	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_requests_total",
		Help: "Total request cycles by transport strategy and outcome",
	}, []string{"approach", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_request_duration_seconds",
		Help:    "Request cycle duration in seconds, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"approach"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_errors_total",
		Help: "Total failed attempts by error class",
	}, []string{"class"})
)

const (
	// DefaultTimeoutSeconds is the connect and overall request timeout.
	DefaultTimeoutSeconds = 10

	// customApproach labels metrics when a caller-supplied transport is used.
	customApproach = "custom"
)

// Config holds the client configuration.
type Config struct {
	// Request
	URL         string
	Method      string
	RequestData transport.Params
	Body        []byte
	Headers     []string // "Name: value" lines

	// Transport
	TimeoutSeconds int
	Approach       transport.Approach
	IgnoreErrors   bool // return non-2xx bodies instead of failing the attempt
	DebugMode      bool // report non-2xx statuses as failures regardless of IgnoreErrors

	// Retry
	MaxAttempts  int
	AttemptDelay time.Duration

	// Parsing
	ExpectedResponseFormat response.ContentType

	// Hooks
	Log       logging.Func
	Trace     logging.Func
	ShouldLog logging.Predicate

	// Optional response cache (Redis)
	Cache *cache.Manager

	// Client-side throttle, 0 disables it
	RequestsPerSecond float64

	// Transport overrides the strategy selected by Approach.
	Transport transport.Transport

	// Logger defaults to the "remote-client" component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Method:                 "GET",
		TimeoutSeconds:         DefaultTimeoutSeconds,
		Approach:               transport.ApproachStreams,
		IgnoreErrors:           true,
		MaxAttempts:            retry.DefaultMaxAttempts,
		AttemptDelay:           retry.DefaultDelay,
		ExpectedResponseFormat: response.ContentTypeText,
	}
}

// Client performs request cycles against one remote resource. It is not safe
// for concurrent use; concurrent callers use separate clients.
type Client struct {
	request      transport.RequestConfig
	contentType  response.ContentType
	approach     transport.Approach
	ignoreErrors bool
	debugMode    bool
	policy       retry.Policy
	transport    transport.Transport
	cache        *cache.Manager
	limiter      *rate.Limiter
	logger       zerolog.Logger

	headerLines []string
	last        response.Parsed
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	logger := logging.NewLogger("remote-client")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	c := &Client{
		request: transport.RequestConfig{
			URL:     cfg.URL,
			Query:   cfg.RequestData.Clone(),
			Headers: append([]string(nil), cfg.Headers...),
		},
		contentType:  cfg.ExpectedResponseFormat,
		ignoreErrors: cfg.IgnoreErrors,
		debugMode:    cfg.DebugMode,
		policy: retry.Policy{
			Log:       cfg.Log,
			Trace:     cfg.Trace,
			ShouldLog: cfg.ShouldLog,
			Operation: "get",
		},
		transport: cfg.Transport,
		cache:     cfg.Cache,
		logger:    logger,
	}

	if cfg.Approach == "" {
		cfg.Approach = transport.ApproachStreams
	}
	if err := c.SetRequestApproach(string(cfg.Approach)); err != nil {
		return nil, err
	}
	if cfg.ExpectedResponseFormat == "" {
		c.contentType = response.ContentTypeText
	}

	c.SetRequestMethod(cfg.Method)
	c.SetBody(cfg.Body)
	c.SetRequestTimeout(cfg.TimeoutSeconds)
	c.SetMaxAttempts(cfg.MaxAttempts)
	c.policy.Delay = cfg.AttemptDelay
	c.SetRequestsPerSecond(cfg.RequestsPerSecond)

	return c, nil
}

// SetURL sets the request URL.
func (c *Client) SetURL(url string) {
	c.request.URL = url
}

// SetRequestMethod sets the HTTP method. An empty method means GET.
func (c *Client) SetRequestMethod(method string) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "GET"
	}
	c.request.Method = method
}

// SetRequestData replaces the request parameters.
func (c *Client) SetRequestData(data transport.Params) {
	c.request.Query = data.Clone()
}

// SetRequestDataValue sets a single request parameter.
func (c *Client) SetRequestDataValue(key, value string) {
	c.request.Query.Set(key, value)
}

// MergeRequestData merges parameters into the request data; later values
// override earlier ones.
func (c *Client) MergeRequestData(data ...transport.Params) {
	for _, d := range data {
		c.request.Query.Merge(d)
	}
}

// RequestData returns a copy of the request parameters.
func (c *Client) RequestData() transport.Params {
	return c.request.Query.Clone()
}

// SetBody sets the request payload.
func (c *Client) SetBody(body []byte) {
	if body == nil {
		c.request.Body = nil
		return
	}
	c.request.Body = append([]byte(nil), body...)
}

// SetHeaders replaces the request header lines ("Name: value").
func (c *Client) SetHeaders(lines ...string) {
	c.request.Headers = append([]string(nil), lines...)
}

// AddHeader appends one request header.
func (c *Client) AddHeader(name, value string) {
	c.request.Headers = append(c.request.Headers, name+": "+value)
}

// SetRequestTimeout sets the connect and overall timeout in whole seconds.
// Values below 1 restore the default.
func (c *Client) SetRequestTimeout(seconds int) {
	if seconds < 1 {
		seconds = DefaultTimeoutSeconds
	}
	c.request.Timeout = time.Duration(seconds) * time.Second
}

// SetMaxAttempts sets the number of attempts per request cycle. Values below
// 1 restore the default.
func (c *Client) SetMaxAttempts(n int) {
	if n < 1 {
		n = retry.DefaultMaxAttempts
	}
	c.policy.MaxAttempts = n
}

// SetAttemptSleepDelay sets the fixed pause between attempts in milliseconds.
func (c *Client) SetAttemptSleepDelay(ms int) {
	c.policy.Delay = time.Duration(ms) * time.Millisecond
}

// SetExpectedResponseFormat sets the declared response content type. An
// unsupported value is reported by the next Get.
func (c *Client) SetExpectedResponseFormat(ct response.ContentType) {
	c.contentType = ct
}

// ExpectedResponseFormat returns the declared response content type.
func (c *Client) ExpectedResponseFormat() response.ContentType {
	return c.contentType
}

// SetLogFunc sets the hook receiving failure, recovery and exhaustion
// records. Nil restores the process-wide zerolog logger.
func (c *Client) SetLogFunc(f logging.Func) {
	c.policy.Log = f
}

// SetTraceFunc sets the hook receiving failure records with stack traces.
func (c *Client) SetTraceFunc(f logging.Func) {
	c.policy.Trace = f
}

// SetShouldLog sets the predicate that may suppress failure records.
func (c *Client) SetShouldLog(p logging.Predicate) {
	c.policy.ShouldLog = p
}

// SetRequestApproach selects the transport strategy by name.
func (c *Client) SetRequestApproach(name string) error {
	approach, err := transport.ParseApproach(name)
	if err != nil {
		return err
	}
	c.approach = approach
	return nil
}

// RequestApproach returns the selected transport strategy.
func (c *Client) RequestApproach() transport.Approach {
	return c.approach
}

// SetIgnoreErrors controls whether non-2xx responses are returned as
// successful attempts.
func (c *Client) SetIgnoreErrors(ignore bool) {
	c.ignoreErrors = ignore
}

// SetDebugMode makes every non-2xx response a failed attempt.
func (c *Client) SetDebugMode(debug bool) {
	c.debugMode = debug
}

// SetTransport overrides the strategy selected by the approach. Nil restores
// the approach strategy.
func (c *Client) SetTransport(t transport.Transport) {
	c.transport = t
}

// SetCache enables the Redis response cache. Nil disables it.
func (c *Client) SetCache(m *cache.Manager) {
	c.cache = m
}

// SetRequestsPerSecond limits how often request cycles start. 0 disables the
// throttle.
func (c *Client) SetRequestsPerSecond(rps float64) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// RequestURL returns the URL the next request cycle would use.
func (c *Client) RequestURL() string {
	return c.request.FullURL()
}

// LastHeaderLines returns the header lines of the last successful response,
// status line first.
func (c *Client) LastHeaderLines() []string {
	return append([]string(nil), c.headerLines...)
}

// FormattedHeaders returns the headers of the last successful response keyed
// by lower-cased name.
func (c *Client) FormattedHeaders() response.Headers {
	return response.FormatHeaders(c.headerLines)
}

// LastResponse returns the result of the last request cycle.
func (c *Client) LastResponse() response.Parsed {
	return c.last
}

// Get runs one request cycle and returns the parsed response.
//
// Configuration problems (missing URL, unsupported content type) are
// returned as errors before anything is sent. Failed attempts are retried
// and reported to the log hooks only: when every attempt fails, Get returns
// response.None and a nil error. A cancelled context is returned as error.
func (c *Client) Get(ctx context.Context) (response.Parsed, error) {
	return c.get(ctx, nil)
}

// get runs a request cycle; prepare may adjust the per-cycle request copy.
func (c *Client) get(ctx context.Context, prepare func(*transport.RequestConfig) error) (response.Parsed, error) {
	if c.request.URL == "" {
		return response.None, ErrURLNotSet
	}

	ct, err := response.ParseContentType(string(c.contentType))
	if err != nil {
		return response.None, err
	}

	cfg := c.request.Clone()
	cfg.IgnoreErrors = c.ignoreErrors && !c.debugMode
	if prepare != nil {
		if err := prepare(&cfg); err != nil {
			return response.None, err
		}
	}

	tr, label, err := c.resolveTransport()
	if err != nil {
		return response.None, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return response.None, err
		}
	}

	c.logger.Debug().
		Str("url", cfg.FullURL()).
		Str("approach", label).
		Msg("Starting request cycle")

	start := time.Now()
	raw, ok := retry.Do(ctx, c.policy, func(ctx context.Context) (*transport.RawResponse, error) {
		raw, err := tr.Fetch(ctx, cfg)
		if err != nil {
			errorsTotal.WithLabelValues(string(ClassifyError(err))).Inc()
			return nil, err
		}
		return raw, nil
	})
	requestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if !ok {
		requestsTotal.WithLabelValues(label, "exhausted").Inc()
		c.last = response.None
		if err := ctx.Err(); err != nil {
			return response.None, err
		}
		return response.None, nil
	}

	requestsTotal.WithLabelValues(label, "ok").Inc()
	c.headerLines = raw.HeaderLines
	c.last = response.Parse(raw.Body, ct)

	if c.last.IsNone() {
		c.logger.Debug().
			Str("url", cfg.FullURL()).
			Int("status", raw.StatusCode).
			Str("content_type", string(ct)).
			Msg("Response body does not match the declared content type")
	}

	return c.last, nil
}

// resolveTransport returns the transport for the next cycle and its metrics
// label.
func (c *Client) resolveTransport() (transport.Transport, string, error) {
	tr, label := c.transport, customApproach
	if tr == nil {
		var err error
		tr, err = transport.New(c.approach, c.logger)
		if err != nil {
			return nil, "", err
		}
		label = string(c.approach)
	}

	if c.cache != nil {
		tr = cache.NewTransport(tr, c.cache, c.logger)
	}
	return tr, label, nil
}
