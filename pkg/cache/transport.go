package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/remote-requests/pkg/transport"
)

// Transport serves GET requests from the cache and stores fresh 2xx
// responses of the wrapped transport.
type Transport struct {
	next    transport.Transport
	manager *Manager
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTransport wraps next with the cache held by manager.
func NewTransport(next transport.Transport, manager *Manager, logger zerolog.Logger) *Transport {
	return &Transport{
		next:    next,
		manager: manager,
		logger:  logger.With().Str("component", "cache").Logger(),
		now:     time.Now,
	}
}

// Fetch implements transport.Transport.
func (t *Transport) Fetch(ctx context.Context, cfg transport.RequestConfig) (*transport.RawResponse, error) {
	key := KeyFor(cfg)
	if key.Method != "GET" {
		return t.next.Fetch(ctx, cfg)
	}

	entry, err := t.manager.Get(ctx, key)
	switch {
	case err == nil:
		t.logger.Debug().Str("key", key.String()).Msg("Serving response from cache")
		return entry.Raw(), nil
	case !errors.Is(err, ErrCacheMiss):
		t.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache lookup failed")
	}

	raw, err := t.next.Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}

	entry, ok := ResponseToEntry(raw, t.now())
	if !ok {
		return raw, nil
	}
	if err := t.manager.Set(ctx, key, entry); err != nil {
		t.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache store failed")
	}

	return raw, nil
}
