// Package config loads the remote-fetch command configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sternrassler/remote-requests/pkg/pagination"
	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// EnvPrefix prefixes every environment variable, e.g. REMOTE_URL.
const EnvPrefix = "REMOTE"

// headerSeparator separates request header lines in REMOTE_HEADERS.
const headerSeparator = "|"

// ErrURLNotSet is returned by Validate without a target URL.
var ErrURLNotSet = errors.New("url not set (REMOTE_URL or first argument)")

// Config holds the remote-fetch configuration.
type Config struct {
	// Request
	URL     string `mapstructure:"url"`
	Method  string `mapstructure:"method"`
	Query   string `mapstructure:"query"`   // "a=1&b=2", order kept
	Headers string `mapstructure:"headers"` // "Name: value|Name: value"
	Body    string `mapstructure:"body"`

	// Engine
	Approach          string        `mapstructure:"approach"`
	Format            string        `mapstructure:"format"`
	TimeoutSeconds    int           `mapstructure:"timeout_seconds"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	AttemptDelayMS    int64         `mapstructure:"attempt_delay_ms"`
	AttemptDelay      time.Duration `mapstructure:"-"`
	IgnoreErrors      bool          `mapstructure:"ignore_errors"`
	DebugMode         bool          `mapstructure:"debug_mode"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`

	// Search mode is enabled by a non-empty SearchQuery.
	SearchQuery   string `mapstructure:"search_query"`
	ResultsKey    string `mapstructure:"results_key"`
	Limit         int    `mapstructure:"limit"`
	MaxPerRequest int    `mapstructure:"max_per_request"`
	Offset        int    `mapstructure:"offset"`

	// PaginationApproach is "pages" or "offset". Offset mode sends the
	// start index and count under OffsetParam and CountParam.
	PaginationApproach string `mapstructure:"pagination_approach"`
	OffsetParam        string `mapstructure:"offset_param"`
	CountParam         string `mapstructure:"count_param"`

	APIKeyParam   string `mapstructure:"api_key_param"`
	APIKey        string `mapstructure:"api_key"`

	// Rate limits
	RateLimits     bool          `mapstructure:"rate_limits"`
	MaxWaitSeconds int64         `mapstructure:"max_wait_seconds"`
	MaxWait        time.Duration `mapstructure:"-"`

	// Infrastructure
	RedisAddr          string        `mapstructure:"redis_addr"`
	CacheMaxTTLSeconds int64         `mapstructure:"cache_max_ttl_seconds"`
	CacheMaxTTL        time.Duration `mapstructure:"-"`
	MetricsAddr        string        `mapstructure:"metrics_addr"`
	LogLevel           string        `mapstructure:"log_level"`
	LogPretty          bool          `mapstructure:"log_pretty"`
}

// Load reads configuration from envFile, when it exists, and the
// environment. Environment variables win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	v.SetDefault("url", "")
	v.SetDefault("method", "GET")
	v.SetDefault("query", "")
	v.SetDefault("headers", "")
	v.SetDefault("body", "")
	v.SetDefault("approach", string(transport.ApproachStreams))
	v.SetDefault("format", "plain/text")
	v.SetDefault("timeout_seconds", 10)
	v.SetDefault("max_attempts", 2)
	v.SetDefault("attempt_delay_ms", 2000)
	v.SetDefault("ignore_errors", true)
	v.SetDefault("debug_mode", false)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("search_query", "")
	v.SetDefault("results_key", "results")
	v.SetDefault("limit", 40)
	v.SetDefault("max_per_request", 40)
	v.SetDefault("offset", 0)
	v.SetDefault("pagination_approach", string(pagination.ApproachPages))
	v.SetDefault("offset_param", "offset")
	v.SetDefault("count_param", "limit")
	v.SetDefault("api_key_param", "")
	v.SetDefault("api_key", "")
	v.SetDefault("rate_limits", false)
	v.SetDefault("max_wait_seconds", 60)
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_max_ttl_seconds", 0)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.AttemptDelayMS < 0 {
		return nil, fmt.Errorf("invalid attempt_delay_ms (must not be negative)")
	}
	cfg.AttemptDelay = time.Duration(cfg.AttemptDelayMS) * time.Millisecond

	if cfg.MaxWaitSeconds < 0 {
		return nil, fmt.Errorf("invalid max_wait_seconds (must not be negative)")
	}
	cfg.MaxWait = time.Duration(cfg.MaxWaitSeconds) * time.Second

	if cfg.CacheMaxTTLSeconds < 0 {
		return nil, fmt.Errorf("invalid cache_max_ttl_seconds (must not be negative)")
	}
	cfg.CacheMaxTTL = time.Duration(cfg.CacheMaxTTLSeconds) * time.Second

	return &cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLNotSet
	}
	if _, err := transport.ParseApproach(c.Approach); err != nil {
		return err
	}
	if c.SearchQuery != "" && c.ResultsKey == "" {
		return fmt.Errorf("invalid results_key (required in search mode)")
	}
	approach, err := pagination.ParseApproach(c.PaginationApproach)
	if err != nil {
		return err
	}
	if approach == pagination.ApproachOffset && (c.OffsetParam == "" || c.CountParam == "") {
		return fmt.Errorf("invalid offset_param or count_param (required in offset pagination)")
	}
	return nil
}

// SearchMode reports whether a search query is configured.
func (c *Config) SearchMode() bool {
	return c.SearchQuery != ""
}

// QueryParams parses Query into ordered request params.
func (c *Config) QueryParams() (transport.Params, error) {
	var params transport.Params
	for _, pair := range strings.Split(c.Query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return transport.Params{}, fmt.Errorf("invalid query key %q: %w", key, err)
		}
		val, err := url.QueryUnescape(value)
		if err != nil {
			return transport.Params{}, fmt.Errorf("invalid query value for %q: %w", k, err)
		}
		params.Set(k, val)
	}
	return params, nil
}

// Pagination returns the pagination state of a search. Offset mode sends the
// page-aligned start index so the leading-item trim of a search still
// applies.
func (c *Config) Pagination() (pagination.State, func(pagination.State) map[string]string, error) {
	approach, err := pagination.ParseApproach(c.PaginationApproach)
	if err != nil {
		return pagination.State{}, nil, err
	}

	state := pagination.State{
		Limit:         c.Limit,
		MaxPerRequest: c.MaxPerRequest,
		Offset:        c.Offset,
		Approach:      approach,
	}
	if approach != pagination.ApproachOffset {
		return state, nil, nil
	}

	offsetParam, countParam := c.OffsetParam, c.CountParam
	params := func(s pagination.State) map[string]string {
		return map[string]string{
			offsetParam: strconv.Itoa(s.NormalizedOffset()),
			countParam:  strconv.Itoa(s.ResultsPerRequest()),
		}
	}
	return state, params, nil
}

// HeaderLines splits Headers into "Name: value" lines.
func (c *Config) HeaderLines() []string {
	var lines []string
	for _, line := range strings.Split(c.Headers, headerSeparator) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
