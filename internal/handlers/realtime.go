package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/apperrors"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/middleware"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsReadLimit  = 4096
)

// BookmarkWebSocket streams the user's bookmark events so every open device stays in sync.
// Browsers cannot set headers on websocket requests, so the token may also be passed as ?token=.
func (h *Handler) BookmarkWebSocket(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		h.writeError(w, r, apperrors.Unauthorized("Authentication required"))
		return
	}

	userID, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debug("websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(userID)
	defer sub.Close()

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeEvents(conn, sub, done)
	}()

	// Clients only send pongs and control frames; anything else is discarded.
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	<-writerDone
}

// writeEvents is the only goroutine that writes to conn.
func (h *Handler) writeEvents(conn *websocket.Conn, sub *services.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				// Unblocks the read loop.
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
