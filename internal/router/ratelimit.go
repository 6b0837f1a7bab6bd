package router

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"loyalty-service/shared/response"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter throttles callers per client IP with a fixed window kept in
// redis. A caller over the limit is blocked for blockDuration. Redis errors
// let the request through.
func RateLimiter(rdb redis.UniversalClient, limit int, window, blockDuration time.Duration, keyPrefix string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := keyPrefix + ":ip:" + clientIP(r)
			blockKey := key + ":blocked"

			if blocked, _ := rdb.Get(ctx, blockKey).Result(); blocked == "1" {
				ttl, _ := rdb.TTL(ctx, blockKey).Result()
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				response.ErrorCode(w, http.StatusTooManyRequests, "rate_limited", "too many requests, retry in "+ttl.String())
				return
			}

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(ctx, key, window)
			}

			if count > int64(limit) {
				rdb.Set(ctx, blockKey, "1", blockDuration)
				logger.Warn("client rate limited",
					zap.String("key", key),
					zap.Int64("count", count),
					zap.Duration("blocked_for", blockDuration),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(blockDuration.Seconds())))
				response.ErrorCode(w, http.StatusTooManyRequests, "rate_limited", "too many requests, blocked for "+blockDuration.String())
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys on RemoteAddr only. Forwarding headers are honoured solely
// through middleware.RealIP, which runs ahead of the limiter behind the proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
