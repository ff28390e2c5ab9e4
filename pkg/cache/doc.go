// Package cache provides an optional Redis-backed response cache that wraps
// any transport.Transport.
//
// Only GET requests are served from the cache, and only 2xx responses are
// stored. Entries live until the response's Cache-Control max-age or Expires
// header says they are stale, or DefaultTTL when neither is present.
// Responses marked no-store are never written.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//	cached := cache.NewTransport(transport.NewStreamTransport(logger), manager, logger)
//
//	raw, err := cached.Fetch(ctx, cfg)
//
// A cache failure (Redis unreachable, corrupt entry) is logged and the
// request goes to the wrapped transport; it never fails the request.
//
// # Metrics
//
//   - remote_cache_hits_total - Cache hits
//   - remote_cache_misses_total - Cache misses
//   - remote_cache_stored_bytes_total - Bytes written to the cache
//   - remote_cache_errors_total{operation} - Cache operation errors
package cache
