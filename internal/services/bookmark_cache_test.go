package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

// gatedStore holds the first ListByUser call after it has read its rows until
// release is closed.
type gatedStore struct {
	BookmarkStore

	lists   atomic.Int32
	loaded  chan struct{}
	release chan struct{}
}

func newGatedStore(inner BookmarkStore) *gatedStore {
	return &gatedStore{
		BookmarkStore: inner,
		loaded:        make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (g *gatedStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Bookmark, error) {
	rows, err := g.BookmarkStore.ListByUser(ctx, userID, limit, offset)
	if g.lists.Add(1) == 1 {
		close(g.loaded)
		<-g.release
	}
	return rows, err
}

func newGatedFixture(t *testing.T) (*bookmarkFixture, *gatedStore) {
	t.Helper()
	var gate *gatedStore
	f := newBookmarkFixture(t, func(d *BookmarkDeps) {
		gate = newGatedStore(d.Store)
		d.Store = gate
	})
	return f, gate
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the store")
	}
}

type listResult struct {
	page *BookmarkPage
	err  error
}

func TestListFillRacingCreateIsNotServedStale(t *testing.T) {
	ctx := context.Background()
	f, gate := newGatedFixture(t)
	owner := f.stores.user(t, "owner@example.com")

	first := make(chan listResult, 1)
	go func() {
		page, err := f.svc.List(ctx, owner.ID, ListOptions{})
		first <- listResult{page, err}
	}()
	waitClosed(t, gate.loaded)

	// The fill has read an empty page; the write lands before it is cached.
	b, err := f.svc.Create(ctx, owner.ID, "Go", "https://go.dev")
	require.NoError(t, err)
	close(gate.release)

	res := <-first
	require.NoError(t, res.err)

	page, err := f.svc.List(ctx, owner.ID, ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Bookmarks, 1, "the new bookmark is listed right after create")
	assert.Equal(t, b.ID, page.Bookmarks[0].ID)
	assert.Equal(t, 1, page.Total)

	cached, err := f.svc.List(ctx, owner.ID, ListOptions{})
	require.NoError(t, err)
	require.Len(t, cached.Bookmarks, 1)
	assert.Equal(t, b.ID, cached.Bookmarks[0].ID)
}

func TestListSharedFillSurvivesCancelledCaller(t *testing.T) {
	f, gate := newGatedFixture(t)
	owner := f.stores.user(t, "owner@example.com")
	_, err := f.svc.Create(context.Background(), owner.ID, "Go", "https://go.dev")
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := f.svc.List(ctxA, owner.ID, ListOptions{})
		errA <- err
	}()
	waitClosed(t, gate.loaded)

	gets := f.cache.getCount()
	resB := make(chan listResult, 1)
	go func() {
		page, err := f.svc.List(context.Background(), owner.ID, ListOptions{})
		resB <- listResult{page, err}
	}()
	// B has read the generation and missed the page, so it is joining A's fill.
	require.Eventually(t, func() bool { return f.cache.getCount() >= gets+2 },
		2*time.Second, 5*time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled, "the cancelled caller returns at once")

	close(gate.release)
	res := <-resB
	require.NoError(t, res.err)
	require.Len(t, res.page.Bookmarks, 1)
	assert.Equal(t, 1, res.page.Total)
}

func TestListCollapsesConcurrentFills(t *testing.T) {
	ctx := context.Background()
	f, gate := newGatedFixture(t)
	owner := f.stores.user(t, "owner@example.com")
	_, err := f.svc.Create(ctx, owner.ID, "Go", "https://go.dev")
	require.NoError(t, err)

	const callers = 8
	gets := f.cache.getCount()
	results := make(chan listResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := f.svc.List(ctx, owner.ID, ListOptions{})
			results <- listResult{page, err}
		}()
	}

	waitClosed(t, gate.loaded)
	// Each caller reads the generation and then misses the page.
	require.Eventually(t, func() bool { return f.cache.getCount() >= gets+2*callers },
		2*time.Second, 5*time.Millisecond)
	// Lets the last caller step from its miss into the shared fill.
	time.Sleep(20 * time.Millisecond)
	close(gate.release)

	wg.Wait()
	close(results)
	for res := range results {
		require.NoError(t, res.err)
		require.Len(t, res.page.Bookmarks, 1)
	}
	assert.EqualValues(t, 1, gate.lists.Load(), "one store read serves every waiting caller")
}
