package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/remote-requests/internal/testutil"
	"github.com/Sternrassler/remote-requests/pkg/logging"
	"github.com/Sternrassler/remote-requests/pkg/response"
	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// recorder collects log records emitted by the retry loop.
type recorder struct {
	mu      sync.Mutex
	records []logging.Record
}

func (r *recorder) sink(rec logging.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Message
	}
	return out
}

// testConfig returns a config suitable for tests: quiet logger, short delay.
func testConfig(url string) Config {
	logger := zerolog.Nop()
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.AttemptDelay = time.Millisecond
	cfg.Log = logging.Discard
	cfg.Logger = &logger
	return cfg
}

func approaches() []transport.Approach {
	return []transport.Approach{transport.ApproachStreams, transport.ApproachClient}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Method != "GET" {
		t.Errorf("Method = %q, want GET", cfg.Method)
	}
	if cfg.TimeoutSeconds != 10 {
		t.Errorf("TimeoutSeconds = %d, want 10", cfg.TimeoutSeconds)
	}
	if cfg.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", cfg.MaxAttempts)
	}
	if cfg.AttemptDelay != 2000*time.Millisecond {
		t.Errorf("AttemptDelay = %v, want 2s", cfg.AttemptDelay)
	}
	if cfg.ExpectedResponseFormat != response.ContentTypeText {
		t.Errorf("ExpectedResponseFormat = %q, want plain/text", cfg.ExpectedResponseFormat)
	}
	if cfg.Approach != transport.ApproachStreams {
		t.Errorf("Approach = %q, want streams", cfg.Approach)
	}
	if !cfg.IgnoreErrors {
		t.Error("IgnoreErrors should default to true")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		approach    transport.Approach
		expectError bool
	}{
		{"streams", transport.ApproachStreams, false},
		{"client", transport.ApproachClient, false},
		{"legacy curl spelling", "cURL", false},
		{"empty uses default", "", false},
		{"unknown", "carrier-pigeon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://example.com")
			cfg.Approach = tt.approach

			_, err := New(cfg)
			if tt.expectError {
				if !errors.Is(err, ErrInvalidApproach) {
					t.Errorf("New() error = %v, want ErrInvalidApproach", err)
				}
				return
			}
			if err != nil {
				t.Errorf("New() unexpected error: %v", err)
			}
		})
	}
}

func TestGet_URLNotSet(t *testing.T) {
	c, err := New(testConfig(""))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Get(context.Background()); !errors.Is(err, ErrURLNotSet) {
		t.Errorf("Get() error = %v, want ErrURLNotSet", err)
	}
}

func TestGet_UnsupportedContentTypeNotDispatched(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	c, _ := New(testConfig(mock.URL()))
	c.SetExpectedResponseFormat("xml")

	_, err := c.Get(context.Background())

	var ctErr *response.UnsupportedContentTypeError
	if !errors.As(err, &ctErr) {
		t.Fatalf("Get() error = %v, want UnsupportedContentTypeError", err)
	}
	if ctErr.Declared != "xml" {
		t.Errorf("Declared = %q, want xml", ctErr.Declared)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("RequestCount = %d, want 0", mock.RequestCount())
	}
}

func TestGet_Text(t *testing.T) {
	for _, approach := range approaches() {
		t.Run(string(approach), func(t *testing.T) {
			mock := testutil.NewMockProvider()
			defer mock.Close()
			resp := testutil.NewTextResponse("hello: world")
			resp.Headers["X-Trace"] = "a:b:c"
			mock.SetResponse("/greeting", resp)

			cfg := testConfig(mock.URL() + "/greeting")
			cfg.Approach = approach
			c, _ := New(cfg)

			got, err := c.Get(context.Background())
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Kind != response.KindText || got.Text != "hello: world" {
				t.Errorf("Get() = %+v, want text", got)
			}
			if c.LastResponse() != got {
				t.Error("LastResponse() differs from Get() result")
			}

			lines := c.LastHeaderLines()
			if len(lines) == 0 || !strings.HasPrefix(lines[0], "HTTP/1.1 200") {
				t.Errorf("LastHeaderLines() = %v", lines)
			}
			if v, _ := c.FormattedHeaders().Get("X-TRACE"); v != "a:b:c" {
				t.Errorf("x-trace = %q, want a:b:c", v)
			}
		})
	}
}

func TestGet_JSON(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetResponse("/doc", testutil.NewJSONResponse(`{"name":"remote","tags":["a","b"]}`))
	mock.SetResponse("/broken", testutil.NewJSONResponse(`not json`))

	c, _ := New(testConfig(mock.URL() + "/doc"))
	c.SetExpectedResponseFormat(response.ContentTypeJSON)

	got, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	obj, ok := got.Object()
	if !ok || obj["name"] != "remote" {
		t.Errorf("Get() = %+v", got)
	}

	c.SetURL(mock.URL() + "/broken")
	got, err = c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.IsNone() {
		t.Errorf("Get() on invalid JSON = %+v, want None", got)
	}
}

func TestGet_RetryRecovers(t *testing.T) {
	for _, approach := range approaches() {
		t.Run(string(approach), func(t *testing.T) {
			mock := testutil.NewMockProvider()
			defer mock.Close()
			mock.SetFlakyResponse("/flaky", 2, testutil.NewServerErrorResponse(), testutil.NewTextResponse("finally"))

			rec := &recorder{}
			cfg := testConfig(mock.URL() + "/flaky")
			cfg.Approach = approach
			cfg.IgnoreErrors = false
			cfg.MaxAttempts = 3
			cfg.Log = rec.sink
			c, _ := New(cfg)

			got, err := c.Get(context.Background())
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Text != "finally" {
				t.Errorf("Get() = %+v", got)
			}
			if mock.PathCount("/flaky") != 3 {
				t.Errorf("requests = %d, want 3", mock.PathCount("/flaky"))
			}

			want := "attempt 1 failed|attempt 2 failed|recovered on attempt 3"
			if got := strings.Join(rec.messages(), "|"); got != want {
				t.Errorf("messages = %q, want %q", got, want)
			}
		})
	}
}

func TestGet_ExhaustionReturnsNone(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetResponse("/ok", testutil.NewJSONResponse(`{"ok":true}`))
	mock.SetResponse("/down", testutil.NewServerErrorResponse())

	rec := &recorder{}
	cfg := testConfig(mock.URL() + "/ok")
	cfg.IgnoreErrors = false
	cfg.Log = rec.sink
	c, _ := New(cfg)

	if _, err := c.Get(context.Background()); err != nil {
		t.Fatalf("first Get() error = %v", err)
	}
	before := c.LastHeaderLines()

	c.SetURL(mock.URL() + "/down")
	got, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v, want nil on exhaustion", err)
	}
	if !got.IsNone() || !c.LastResponse().IsNone() {
		t.Errorf("Get() = %+v, want None", got)
	}
	if mock.PathCount("/down") != 2 {
		t.Errorf("requests = %d, want exactly 2", mock.PathCount("/down"))
	}
	if strings.Join(c.LastHeaderLines(), "\n") != strings.Join(before, "\n") {
		t.Error("failed cycle replaced the previous headers")
	}

	msgs := rec.messages()
	if len(msgs) == 0 || msgs[len(msgs)-1] != "all 2 attempts failed" {
		t.Errorf("messages = %v", msgs)
	}
}

func TestGet_IgnoreErrorsAndDebugMode(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetResponse("/missing", testutil.MockResponse{StatusCode: http.StatusNotFound, Body: "nope"})

	c, _ := New(testConfig(mock.URL() + "/missing"))

	got, err := c.Get(context.Background())
	if err != nil || got.Text != "nope" {
		t.Errorf("Get() with IgnoreErrors = %+v, %v; want body", got, err)
	}
	if mock.PathCount("/missing") != 1 {
		t.Errorf("requests = %d, want 1", mock.PathCount("/missing"))
	}

	c.SetDebugMode(true)
	got, err = c.Get(context.Background())
	if err != nil || !got.IsNone() {
		t.Errorf("Get() in debug mode = %+v, %v; want None", got, err)
	}
	if mock.PathCount("/missing") != 3 {
		t.Errorf("requests = %d, want 3", mock.PathCount("/missing"))
	}
}

func TestGet_ShouldLogAndTrace(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetResponse("/missing", testutil.MockResponse{StatusCode: http.StatusNotFound})
	mock.SetResponse("/down", testutil.NewServerErrorResponse())

	logs, traces := &recorder{}, &recorder{}
	cfg := testConfig(mock.URL() + "/missing")
	cfg.IgnoreErrors = false
	cfg.MaxAttempts = 1
	cfg.Log = logs.sink
	cfg.Trace = traces.sink
	cfg.ShouldLog = QuietOn(ErrorClassClient)
	c, _ := New(cfg)

	c.Get(context.Background())
	if got := strings.Join(logs.messages(), "|"); got != "all 1 attempts failed" {
		t.Errorf("messages for suppressed class = %q", got)
	}
	if len(traces.records) != 0 {
		t.Errorf("trace records = %d, want 0", len(traces.records))
	}

	c.SetURL(mock.URL() + "/down")
	c.Get(context.Background())
	if len(traces.records) != 1 {
		t.Fatalf("trace records = %d, want 1", len(traces.records))
	}
	if !strings.Contains(traces.records[0].Trace, "unexpected status 500") {
		t.Errorf("trace = %q", traces.records[0].Trace)
	}
}

func TestGet_RequestComposition(t *testing.T) {
	for _, approach := range approaches() {
		t.Run(string(approach), func(t *testing.T) {
			mock := testutil.NewMockProvider()
			defer mock.Close()

			cfg := testConfig(mock.URL() + "/items?key=abc")
			cfg.Approach = approach
			cfg.RequestData = transport.NewParams("q", "first")
			c, _ := New(cfg)

			c.SetRequestMethod("post")
			c.SetRequestDataValue("q", "cats")
			c.MergeRequestData(transport.NewParams("sort", "new"), transport.NewParams("sort", "top"))
			c.SetBody([]byte(`{"x":1}`))
			c.AddHeader("Authorization", "Bearer t:k")

			if got, want := c.RequestURL(), mock.URL()+"/items?key=abc&q=cats&sort=top"; got != want {
				t.Errorf("RequestURL() = %q, want %q", got, want)
			}

			if _, err := c.Get(context.Background()); err != nil {
				t.Fatalf("Get() error = %v", err)
			}

			if mock.LastMethod() != http.MethodPost {
				t.Errorf("method = %q, want POST", mock.LastMethod())
			}
			if mock.LastBody() != `{"x":1}` {
				t.Errorf("body = %q", mock.LastBody())
			}
			q := mock.LastQuery()
			if q.Get("key") != "abc" || q.Get("q") != "cats" || q.Get("sort") != "top" {
				t.Errorf("query = %v", q)
			}
			if got := mock.LastHeader().Get("Authorization"); got != "Bearer t:k" {
				t.Errorf("Authorization = %q", got)
			}
		})
	}
}

func TestGet_Timeout(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetResponse("/slow", testutil.MockResponse{StatusCode: http.StatusOK, Body: "late", Delay: 3 * time.Second})

	c, _ := New(testConfig(mock.URL() + "/slow"))
	c.SetRequestTimeout(1)
	c.SetMaxAttempts(1)

	start := time.Now()
	got, err := c.Get(context.Background())
	if err != nil || !got.IsNone() {
		t.Errorf("Get() = %+v, %v; want None, nil", got, err)
	}
	if elapsed := time.Since(start); elapsed > 2500*time.Millisecond {
		t.Errorf("timeout not applied, took %v", elapsed)
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	c, _ := New(testConfig(mock.URL()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := c.Get(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if !got.IsNone() {
		t.Errorf("Get() = %+v, want None", got)
	}
}

func TestGet_Throttle(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()

	cfg := testConfig(mock.URL())
	cfg.RequestsPerSecond = 20
	c, _ := New(cfg)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background()); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 throttled requests took %v, want >= 80ms", elapsed)
	}
}

func TestSetTransport(t *testing.T) {
	var seen transport.RequestConfig
	fake := transport.Func(func(_ context.Context, cfg transport.RequestConfig) (*transport.RawResponse, error) {
		seen = cfg
		return &transport.RawResponse{
			StatusCode:  200,
			HeaderLines: []string{"HTTP/1.1 200 OK", "X-RateLimit-Remaining: 9"},
			Body:        []byte("fake"),
		}, nil
	})

	c, _ := New(testConfig("https://api.example.com/items"))
	c.SetTransport(fake)
	c.SetRequestTimeout(0)

	got, err := c.Get(context.Background())
	if err != nil || got.Text != "fake" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if seen.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want default 10s", seen.Timeout)
	}
	if !seen.IgnoreErrors || seen.Method != "GET" {
		t.Errorf("config = %+v", seen)
	}
}

func TestSetters(t *testing.T) {
	c, _ := New(testConfig("u"))

	if err := c.SetRequestApproach("client"); err != nil || c.RequestApproach() != transport.ApproachClient {
		t.Errorf("SetRequestApproach(client) = %v, approach %q", err, c.RequestApproach())
	}
	if err := c.SetRequestApproach("ftp"); !errors.Is(err, ErrInvalidApproach) {
		t.Errorf("SetRequestApproach(ftp) error = %v", err)
	}
	if c.RequestApproach() != transport.ApproachClient {
		t.Error("invalid approach replaced the previous one")
	}

	c.SetMaxAttempts(0)
	if c.policy.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want default 2", c.policy.MaxAttempts)
	}
	c.SetAttemptSleepDelay(150)
	if c.policy.Delay != 150*time.Millisecond {
		t.Errorf("Delay = %v, want 150ms", c.policy.Delay)
	}

	c.SetRequestData(transport.NewParams("a", "1"))
	data := c.RequestData()
	data.Set("a", "changed")
	if v, _ := c.RequestData().Get("a"); v != "1" {
		t.Error("RequestData() exposes internal state")
	}

	c.SetHeaders("A: 1", "B: 2")
	if len(c.request.Headers) != 2 {
		t.Errorf("headers = %v", c.request.Headers)
	}
}

func TestGet_Metrics(t *testing.T) {
	mock := testutil.NewMockProvider()
	defer mock.Close()
	mock.SetResponse("/fail", testutil.NewServerErrorResponse())

	okBefore := promtest.ToFloat64(requestsTotal.WithLabelValues("streams", "ok"))
	exhaustedBefore := promtest.ToFloat64(requestsTotal.WithLabelValues("streams", "exhausted"))
	serverBefore := promtest.ToFloat64(errorsTotal.WithLabelValues(string(ErrorClassServer)))

	c, _ := New(testConfig(mock.URL()))
	c.Get(context.Background())

	c.SetURL(mock.URL() + "/fail")
	c.SetDebugMode(true)
	c.Get(context.Background())

	if d := promtest.ToFloat64(requestsTotal.WithLabelValues("streams", "ok")) - okBefore; d != 1 {
		t.Errorf("ok delta = %v, want 1", d)
	}
	if d := promtest.ToFloat64(requestsTotal.WithLabelValues("streams", "exhausted")) - exhaustedBefore; d != 1 {
		t.Errorf("exhausted delta = %v, want 1", d)
	}
	if d := promtest.ToFloat64(errorsTotal.WithLabelValues(string(ErrorClassServer))) - serverBefore; d != 2 {
		t.Errorf("server error delta = %v, want 2", d)
	}
}
