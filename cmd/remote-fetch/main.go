// Command remote-fetch runs one request cycle, or one paginated search,
// configured from REMOTE_* environment variables and prints the parsed
// result as JSON.
//
//	REMOTE_FORMAT=application/json remote-fetch https://api.example.com/items
//	REMOTE_SEARCH_QUERY=gophers REMOTE_LIMIT=50 remote-fetch https://api.example.com/search
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/remote-requests/internal/config"
	"github.com/Sternrassler/remote-requests/pkg/cache"
	"github.com/Sternrassler/remote-requests/pkg/client"
	"github.com/Sternrassler/remote-requests/pkg/logging"
	"github.com/Sternrassler/remote-requests/pkg/metrics"
	"github.com/Sternrassler/remote-requests/pkg/ratelimit"
	"github.com/Sternrassler/remote-requests/pkg/response"
	"github.com/Sternrassler/remote-requests/pkg/search"
	"github.com/Sternrassler/remote-requests/pkg/transport"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the exit code once every deferred cleanup has run.
func realMain(args []string) int {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "remote-fetch: %v\n", err)
		return 2
	}
	if len(args) > 0 {
		cfg.URL = args[0]
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "remote-fetch: %v\n", err)
		return 2
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: newMux()}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer shutdown(srv)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
			return 1
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Response cache enabled")
	}

	if err := run(ctx, cfg, redisClient, logger, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("remote-fetch failed")
		return 1
	}
	return 0
}

// newMux serves the Prometheus metrics and a health probe.
func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// getOutput is printed for a single request cycle.
type getOutput struct {
	URL        string              `json:"url"`
	Kind       string              `json:"kind"`
	Response   any                 `json:"response"`
	RateLimits *ratelimit.Snapshot `json:"rate_limits,omitempty"`
}

// searchOutput is printed for a search.
type searchOutput struct {
	Query      string              `json:"query"`
	Count      int                 `json:"count"`
	Results    []any               `json:"results"`
	RateLimits *ratelimit.Snapshot `json:"rate_limits,omitempty"`
}

// run executes the configured request and writes the JSON result to out.
func run(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger zerolog.Logger, out io.Writer) error {
	clientCfg, err := clientConfig(cfg, redisClient, logger)
	if err != nil {
		return err
	}

	var result any
	if cfg.SearchMode() {
		result, err = runSearch(ctx, cfg, clientCfg, logger)
	} else {
		result, err = runGet(ctx, cfg, clientCfg)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runGet(ctx context.Context, cfg *config.Config, clientCfg client.Config) (*getOutput, error) {
	var (
		parsed response.Parsed
		err    error
		out    getOutput
	)

	if cfg.RateLimits {
		c, cerr := client.NewRateLimited(clientCfg, ratelimit.HeaderNames{})
		if cerr != nil {
			return nil, cerr
		}
		c.WaitOnExhaustion(cfg.MaxWait)
		parsed, err = c.Get(ctx)
		limits := c.RateLimits()
		out.RateLimits = &limits
		out.URL = c.RequestURL()
	} else {
		c, cerr := client.New(clientCfg)
		if cerr != nil {
			return nil, cerr
		}
		parsed, err = c.Get(ctx)
		out.URL = c.RequestURL()
	}
	if err != nil {
		return nil, err
	}

	out.Kind = parsed.Kind.String()
	out.Response = parsed.Value()
	return &out, nil
}

func runSearch(ctx context.Context, cfg *config.Config, clientCfg client.Config, logger zerolog.Logger) (*searchOutput, error) {
	state, offsetParams, err := cfg.Pagination()
	if err != nil {
		return nil, err
	}

	var (
		requester search.Requester
		limited   *client.RateLimitedPaginated
	)
	if cfg.RateLimits {
		r, err := client.NewRateLimitedPaginated(clientCfg, state, ratelimit.HeaderNames{})
		if err != nil {
			return nil, err
		}
		r.OffsetParams = offsetParams
		r.WaitOnExhaustion(cfg.MaxWait)
		requester, limited = r, r
	} else {
		p, err := client.NewPaginated(clientCfg, state)
		if err != nil {
			return nil, err
		}
		p.OffsetParams = offsetParams
		requester = p
	}

	s, err := search.New(requester, search.Config{
		URL:         cfg.URL,
		ResultsKey:  cfg.ResultsKey,
		APIKeyParam: cfg.APIKeyParam,
		APIKey:      cfg.APIKey,
		Logger:      &logger,
	})
	if err != nil {
		return nil, err
	}

	results, err := s.Search(ctx, cfg.SearchQuery)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []any{}
	}

	out := &searchOutput{Query: cfg.SearchQuery, Count: len(results), Results: results}
	if limited != nil {
		limits := limited.RateLimits()
		out.RateLimits = &limits
	}
	return out, nil
}

// clientConfig maps the command configuration onto the client.
func clientConfig(cfg *config.Config, redisClient *redis.Client, logger zerolog.Logger) (client.Config, error) {
	params, err := cfg.QueryParams()
	if err != nil {
		return client.Config{}, err
	}

	cc := client.DefaultConfig()
	cc.URL = cfg.URL
	cc.Method = cfg.Method
	cc.RequestData = params
	cc.Headers = cfg.HeaderLines()
	cc.TimeoutSeconds = cfg.TimeoutSeconds
	cc.Approach = transport.Approach(cfg.Approach)
	cc.IgnoreErrors = cfg.IgnoreErrors
	cc.DebugMode = cfg.DebugMode
	cc.MaxAttempts = cfg.MaxAttempts
	cc.AttemptDelay = cfg.AttemptDelay
	cc.ExpectedResponseFormat = response.ContentType(cfg.Format)
	cc.RequestsPerSecond = cfg.RequestsPerSecond
	cc.Logger = &logger
	cc.Log = logging.ZerologSink(logger)
	if cfg.Body != "" {
		cc.Body = []byte(cfg.Body)
	}
	if redisClient != nil {
		manager := cache.NewManager(redisClient)
		manager.SetMaxTTL(cfg.CacheMaxTTL)
		cc.Cache = manager
	}
	return cc, nil
}
