package models

import "time"

const (
	EventBookmarkCreated = "bookmark_created"
	EventBookmarkDeleted = "bookmark_deleted"
)

// BookmarkEvent is broadcast over Redis and delivered to the owner's websocket connections.
type BookmarkEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Bookmark   *Bookmark `json:"bookmark,omitempty"`
	BookmarkID string    `json:"bookmark_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
