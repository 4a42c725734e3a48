package models

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark is a saved link owned by a single user.
type Bookmark struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LinkStatus is the outcome of checking a bookmark URL.
type LinkStatus string

const (
	LinkHealthy     LinkStatus = "healthy"     // 2xx or 3xx response
	LinkDead        LinkStatus = "dead"        // 404 or 410
	LinkUnreachable LinkStatus = "unreachable" // timeout, DNS failure, 5xx, etc.
	LinkBlocked     LinkStatus = "blocked"     // resolves to a loopback, private or link-local address
)

// LinkCheckResult holds the check result for a single bookmark.
type LinkCheckResult struct {
	BookmarkID uuid.UUID  `json:"bookmark_id"`
	URL        string     `json:"url"`
	Status     LinkStatus `json:"status"`
	StatusCode int        `json:"status_code,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ImportResult summarises a bookmark import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
