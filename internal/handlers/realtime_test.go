package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/apperrors"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/services"
)

func newRealtimeServer(t *testing.T, hub *services.Hub, validToken string, userID uuid.UUID) *httptest.Server {
	t.Helper()
	auth := &mockAuthService{
		authenticateFn: func(_ context.Context, token string) (uuid.UUID, error) {
			if token != validToken {
				return uuid.Nil, apperrors.Unauthorized("Invalid or expired session")
			}
			return userID, nil
		},
	}
	h := newTestHandler(t, &mockBookmarkService{}, withAuth(auth), withHub(hub))

	srv := httptest.NewServer(http.HandlerFunc(h.BookmarkWebSocket))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestBookmarkWebSocketStreamsOwnEvents(t *testing.T) {
	hub := services.NewHub(nil, logger.NewNop(), nil)
	userID := uuid.New()
	srv := newRealtimeServer(t, hub, "good", userID)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=good", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return hub.SubscriberCount(userID) == 1 },
		2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	// Another user's event must not reach this connection.
	require.NoError(t, hub.Publish(ctx, models.BookmarkEvent{
		Type:       models.EventBookmarkDeleted,
		UserID:     uuid.NewString(),
		BookmarkID: "foreign",
	}))
	bookmark := &models.Bookmark{ID: uuid.New(), UserID: userID, Title: "Go", URL: "https://go.dev"}
	require.NoError(t, hub.Publish(ctx, models.BookmarkEvent{
		Type:       models.EventBookmarkCreated,
		UserID:     userID.String(),
		Bookmark:   bookmark,
		BookmarkID: bookmark.ID.String(),
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.BookmarkEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, models.EventBookmarkCreated, event.Type)
	assert.Equal(t, bookmark.ID.String(), event.BookmarkID)
	require.NotNil(t, event.Bookmark)
	assert.Equal(t, "https://go.dev", event.Bookmark.URL)

	conn.Close()
	require.Eventually(t, func() bool { return hub.SubscriberCount(userID) == 0 },
		2*time.Second, 10*time.Millisecond, "subscription is released when the client goes away")
}

func TestBookmarkWebSocketAcceptsBearerHeader(t *testing.T) {
	hub := services.NewHub(nil, logger.NewNop(), nil)
	userID := uuid.New()
	srv := newRealtimeServer(t, hub, "good", userID)

	header := http.Header{}
	header.Set("Authorization", "Bearer good")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	conn.Close()
}

func TestBookmarkWebSocketRejectsBadTokens(t *testing.T) {
	hub := services.NewHub(nil, logger.NewNop(), nil)
	srv := newRealtimeServer(t, hub, "good", uuid.New())

	for _, query := range []string{"", "?token=bad"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+query, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestBookmarkWebSocketChecksOrigin(t *testing.T) {
	hub := services.NewHub(nil, logger.NewNop(), nil)
	userID := uuid.New()
	auth := &mockAuthService{
		authenticateFn: func(context.Context, string) (uuid.UUID, error) { return userID, nil },
	}
	h := newTestHandler(t, &mockBookmarkService{}, withAuth(auth), withHub(hub), func(d *Deps) {
		d.AllowedOrigins = []string{"http://localhost:3000"}
	})
	srv := httptest.NewServer(http.HandlerFunc(h.BookmarkWebSocket))
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=x", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://LOCALHOST:3000")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=x", header)
	require.NoError(t, err)
	conn.Close()
}
