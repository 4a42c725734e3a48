package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/database"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

type testStores struct {
	users     *database.UserRepository
	bookmarks *database.BookmarkRepository
}

func newTestStores(t *testing.T) testStores {
	t.Helper()
	db, err := database.ConnectSQLite(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DialectSQLite))
	return testStores{
		users:     database.NewUserRepository(db),
		bookmarks: database.NewBookmarkRepository(db),
	}
}

func (s testStores) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: "x", CreatedAt: time.Now().UTC(), IsActive: true}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

// memoryCache is a Cache that round-trips values through JSON like the Redis one.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if raw, ok := c.data[key]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n++
	raw, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	c.data[key] = raw
	return n, nil
}

func (c *memoryCache) getCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.BookmarkEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e models.BookmarkEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []models.Activity
}

func (a *recordingActivity) Record(_ context.Context, act models.Activity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, act)
}

func (a *recordingActivity) List(_ context.Context, userID string, _ int) ([]models.Activity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.Activity
	for _, e := range a.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *recordingActivity) actions() []models.ActivityAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.ActivityAction, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

// memorySessions mirrors SessionStore semantics without Redis.
type memorySessions struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
	byUser map[uuid.UUID]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{tokens: make(map[string]uuid.UUID), byUser: make(map[uuid.UUID]string)}
}

func (s *memorySessions) Create(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byUser[userID]; ok {
		delete(s.tokens, old)
	}
	token := uuid.NewString()
	s.tokens[token] = userID
	s.byUser[userID] = token
	return token, nil
}

func (s *memorySessions) Validate(_ context.Context, token string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	return id, ok, nil
}

func (s *memorySessions) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tokens[token]; ok {
		delete(s.byUser, id)
	}
	delete(s.tokens, token)
	return nil
}

var testEpoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newFakeClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(testEpoch)
}
