package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/pkg/clientip"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 300
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = 15 * time.Minute
)

// RedisRateLimit is a fixed-window per-IP counter shared by every instance.
// IPs that exceed the window are blocked for BlockedIPDuration. Redis errors fail open.
type RedisRateLimit struct {
	client     *redis.Client
	log        logger.Logger
	trustProxy bool

	Window      time.Duration
	MaxRequests int
	BlockFor    time.Duration
	now         func() time.Time
}

func NewRedisRateLimit(client *redis.Client, log logger.Logger, trustProxy bool) *RedisRateLimit {
	return &RedisRateLimit{
		client:      client,
		log:         log,
		trustProxy:  trustProxy,
		Window:      RateLimitWindow,
		MaxRequests: RateLimitMaxRequests,
		BlockFor:    BlockedIPDuration,
		now:         time.Now,
	}
}

func (rl *RedisRateLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientip.FromRequest(r, rl.trustProxy)

		blockedKey := BlockedIPKeyPrefix + ip
		isBlocked, err := rl.client.Exists(ctx, blockedKey).Result()
		if err == nil && isBlocked > 0 {
			writeError(w, http.StatusTooManyRequests,
				"Your IP has been temporarily blocked due to excessive requests. Please try again later.", "rate_limited")
			return
		}

		rateLimitKey := RateLimitKeyPrefix + ip
		count, err := rl.client.Incr(ctx, rateLimitKey).Result()
		if err == nil && count == 1 {
			err = rl.client.Expire(ctx, rateLimitKey, rl.Window).Err()
		}
		if err != nil {
			rl.log.Warn("rate limit check failed, allowing request",
				logger.String("ip", ip), logger.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if count > int64(rl.MaxRequests) {
			if err := rl.client.Set(ctx, blockedKey, "1", rl.BlockFor).Err(); err != nil {
				rl.log.Warn("failed to block ip", logger.String("ip", ip), logger.Error(err))
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.BlockFor.Seconds())))
			writeError(w, http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", int(rl.BlockFor.Seconds())), "rate_limited")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.MaxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(rl.MaxRequests)-count, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(rl.Window).Unix(), 10))

		next.ServeHTTP(w, r)
	})
}
