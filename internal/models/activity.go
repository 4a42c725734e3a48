package models

import "time"

// ActivityAction names an auditable user action.
type ActivityAction string

const (
	ActionBookmarkCreated   ActivityAction = "bookmark_created"
	ActionBookmarkDeleted   ActivityAction = "bookmark_deleted"
	ActionBookmarksImported ActivityAction = "bookmarks_imported"
	ActionSignedIn          ActivityAction = "signed_in"
	ActionSignedOut         ActivityAction = "signed_out"
)

// Activity is stored in MongoDB, one document per action.
type Activity struct {
	UserID     string         `bson:"user_id" json:"user_id"`
	Action     ActivityAction `bson:"action" json:"action"`
	BookmarkID string         `bson:"bookmark_id,omitempty" json:"bookmark_id,omitempty"`
	Detail     string         `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt  time.Time      `bson:"created_at" json:"created_at"`
}
