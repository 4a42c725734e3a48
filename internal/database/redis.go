package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
)

// RedisOptions controls the connection retry policy.
type RedisOptions struct {
	ConnectTimeout time.Duration // total time allowed for connection attempts
	RetryInterval  time.Duration // initial wait between attempts, doubles each retry
	MaxWait        time.Duration // cap on the wait between attempts
	PingTimeout    time.Duration
}

// DefaultRedisOptions retries for up to 30s with backoff from 1s to 10s.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		ConnectTimeout: 30 * time.Second,
		RetryInterval:  time.Second,
		MaxWait:        10 * time.Second,
		PingTimeout:    3 * time.Second,
	}
}

// ConnectRedis parses redisURI, applies pool settings and pings until Redis answers
// or opts.ConnectTimeout elapses.
func ConnectRedis(ctx context.Context, redisURI string, opts RedisOptions, log logger.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 5
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := pingWithRetry(ctx, client, opt.Addr, opts, log); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func pingWithRetry(ctx context.Context, client *redis.Client, addr string, opts RedisOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	wait := opts.RetryInterval
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry", logger.String("addr", addr), logger.Int("attempts", attempt))
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", addr, attempt, err)
		case <-timer.C:
			log.Warn("redis connection failed, retrying",
				logger.String("addr", addr),
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}
