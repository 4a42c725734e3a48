package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/metrics"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

const (
	bookmarkChannelPrefix  = "bookmarks:user:"
	bookmarkChannelPattern = bookmarkChannelPrefix + "*"

	subscriptionBuffer = 16
	maxSubscriberWait  = 30 * time.Second
)

// Publisher broadcasts bookmark events to every instance.
type Publisher interface {
	Publish(ctx context.Context, event models.BookmarkEvent) error
}

// Hub fans bookmark events out to the websocket connections held by this instance.
// Events travel through Redis so devices connected to other instances see them too.
type Hub struct {
	client  *redis.Client
	log     logger.Logger
	metrics *metrics.WebSocketMetrics

	mu   sync.RWMutex
	subs map[uuid.UUID]map[*Subscription]struct{}
}

// Subscription receives events for one user until Close is called.
type Subscription struct {
	UserID uuid.UUID
	C      <-chan models.BookmarkEvent

	ch   chan models.BookmarkEvent
	hub  *Hub
	once sync.Once
}

// NewHub builds a hub. A nil client keeps delivery local to this process.
func NewHub(client *redis.Client, log logger.Logger, m *metrics.WebSocketMetrics) *Hub {
	return &Hub{
		client:  client,
		log:     log,
		metrics: m,
		subs:    make(map[uuid.UUID]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new local subscriber for userID.
func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	ch := make(chan models.BookmarkEvent, subscriptionBuffer)
	sub := &Subscription{UserID: userID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
	}
	return sub
}

// Close unregisters the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.UserID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.UserID)
			}
		}
		close(s.ch)
		h.mu.Unlock()

		if h.metrics != nil {
			h.metrics.ActiveConnections.Dec()
		}
	})
}

// SubscriberCount returns the number of local subscriptions for userID.
func (h *Hub) SubscriberCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Deliver hands an event to the owner's local subscribers without blocking.
// Subscribers whose buffer is full miss the event.
func (h *Hub) Deliver(event models.BookmarkEvent) {
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[userID] {
		select {
		case sub.ch <- event:
			if h.metrics != nil {
				h.metrics.EventsDelivered.Inc()
			}
		default:
			if h.metrics != nil {
				h.metrics.EventsDropped.Inc()
			}
			h.log.Warn("dropping bookmark event for slow subscriber",
				logger.String("user_id", event.UserID),
				logger.String("type", event.Type))
		}
	}
}

// Publish sends the event through Redis, or straight to local subscribers when
// the hub has no Redis client.
func (h *Hub) Publish(ctx context.Context, event models.BookmarkEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if h.client == nil {
		h.Deliver(event)
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := h.client.Publish(ctx, bookmarkChannelPrefix+event.UserID, data).Err(); err != nil {
		return fmt.Errorf("publish bookmark event: %w", err)
	}
	return nil
}

// Run listens on the Redis pattern channel until ctx is cancelled, reconnecting
// with exponential backoff after errors.
func (h *Hub) Run(ctx context.Context) {
	if h.client == nil {
		return
	}

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		connected, err := h.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = time.Second
		}
		h.log.Warn("realtime subscriber disconnected, retrying",
			logger.Error(err),
			logger.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxSubscriberWait {
			backoff = maxSubscriberWait
		}
	}
}

func (h *Hub) listen(ctx context.Context) (bool, error) {
	pubsub := h.client.PSubscribe(ctx, bookmarkChannelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, err
	}
	h.log.Info("✅ Realtime subscriber started", logger.String("pattern", bookmarkChannelPattern))

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return true, err
		}

		var event models.BookmarkEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			h.log.Warn("failed to decode bookmark event", logger.Error(err))
			continue
		}
		if event.UserID == "" {
			event.UserID = strings.TrimPrefix(msg.Channel, bookmarkChannelPrefix)
		}
		h.Deliver(event)
	}
}
