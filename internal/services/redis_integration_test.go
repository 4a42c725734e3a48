package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

var (
	redisOnce sync.Once
	redisURL  string
	redisErr  error
)

// setupRedis starts one Redis container per test binary and returns a flushed client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	redisOnce.Do(func() {
		ctx := context.Background()
		container, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			redisErr = err
			return
		}
		redisURL, redisErr = container.ConnectionString(ctx)
	})
	if redisErr != nil {
		t.Skipf("redis container unavailable: %v", redisErr)
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	require.NoError(t, client.FlushAll(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSessionStoreLifecycle(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := NewSessionStore(client, time.Hour)
	userID := uuid.New()

	first, err := store.Create(ctx, userID)
	require.NoError(t, err)

	got, ok, err := store.Validate(ctx, first)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, userID, got)

	ttl, err := client.TTL(ctx, SessionKeyPrefix+first).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	second, err := store.Create(ctx, userID)
	require.NoError(t, err)
	_, ok, err = store.Validate(ctx, first)
	require.NoError(t, err)
	assert.False(t, ok, "new login revokes the previous session")

	require.NoError(t, client.Expire(ctx, SessionKeyPrefix+second, time.Minute).Err())
	require.NoError(t, store.Refresh(ctx, second, userID))
	ttl, err = client.TTL(ctx, SessionKeyPrefix+second).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5, "refresh slides the expiry")

	require.NoError(t, store.Invalidate(ctx, second))
	_, ok, err = store.Validate(ctx, second)
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := client.Exists(ctx, UserSessionKeyPrefix+userID.String()).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	assert.Error(t, store.Refresh(ctx, second, userID))
	_, ok, err = store.Validate(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	cache := NewRedisCache(client)
	key := CacheKey("bookmarks", uuid.NewString())

	var page BookmarkPage
	hit, err := cache.Get(ctx, key, &page)
	require.NoError(t, err)
	assert.False(t, hit)

	want := BookmarkPage{Bookmarks: []models.Bookmark{{ID: uuid.New(), Title: "Go", URL: "https://go.dev"}}, Total: 1}
	require.NoError(t, cache.Set(ctx, key, want, 0))

	hit, err = cache.Get(ctx, key, &page)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, want.Bookmarks[0].ID, page.Bookmarks[0].ID)
	assert.Equal(t, 1, page.Total)

	ttl, err := client.TTL(ctx, CacheKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.InDelta(t, DefaultCacheTTL.Seconds(), ttl.Seconds(), 5)

	require.NoError(t, cache.Delete(ctx, key))
	hit, err = cache.Get(ctx, key, &page)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestHubFansOutThroughRedis(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(client, logger.NewNop(), nil)
	go hub.Run(ctx)

	userID := uuid.New()
	sub := hub.Subscribe(userID)
	defer sub.Close()

	// Publish until the pattern subscription is live.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		require.NoError(t, hub.Publish(ctx, models.BookmarkEvent{
			Type:       models.EventBookmarkDeleted,
			UserID:     userID.String(),
			BookmarkID: "b1",
		}))
		select {
		case e := <-sub.C:
			assert.Equal(t, models.EventBookmarkDeleted, e.Type)
			assert.Equal(t, "b1", e.BookmarkID)
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("event never arrived through redis")
		}
	}
}
