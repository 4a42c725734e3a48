package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

const bookmarkColumns = `id, user_id, title, url, thumbnail_url, created_at`

// newestFirst orders bookmarks by creation time; id breaks ties so pagination is stable.
const newestFirst = `ORDER BY created_at DESC, id DESC`

// BookmarkRepository persists bookmarks. Every query is scoped to the owning user.
type BookmarkRepository struct {
	db *sql.DB
}

func NewBookmarkRepository(db *sql.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

const insertBookmark = `INSERT INTO bookmarks (` + bookmarkColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

func (r *BookmarkRepository) Insert(ctx context.Context, b *models.Bookmark) error {
	if _, err := r.db.ExecContext(ctx, insertBookmark,
		b.ID, b.UserID, b.Title, b.URL, b.ThumbnailURL, b.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

// InsertMany inserts all bookmarks in a single transaction.
func (r *BookmarkRepository) InsertMany(ctx context.Context, bookmarks []models.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertBookmark)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range bookmarks {
		b := &bookmarks[i]
		if _, err := stmt.ExecContext(ctx, b.ID, b.UserID, b.Title, b.URL, b.ThumbnailURL, b.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert bookmark %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListByUser returns one page of the user's bookmarks, newest first.
func (r *BookmarkRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE user_id = $1 `+newestFirst+` LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return scanBookmarks(rows)
}

// ListAllByUser returns every bookmark of the user, newest first.
func (r *BookmarkRepository) ListAllByUser(ctx context.Context, userID uuid.UUID) ([]models.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE user_id = $1 `+newestFirst,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return scanBookmarks(rows)
}

func (r *BookmarkRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookmarks: %w", err)
	}
	return n, nil
}

func (r *BookmarkRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Bookmark, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	var b models.Bookmark
	if err := scanBookmark(row, &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookmarkNotFound
		}
		return nil, fmt.Errorf("get bookmark: %w", err)
	}
	return &b, nil
}

// Delete removes the bookmark if it belongs to userID, otherwise ErrBookmarkNotFound.
func (r *BookmarkRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return requireAffected(res)
}

func (r *BookmarkRepository) SetThumbnail(ctx context.Context, userID, id uuid.UUID, thumbnailURL string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookmarks SET thumbnail_url = $1 WHERE id = $2 AND user_id = $3`,
		thumbnailURL, id, userID,
	)
	if err != nil {
		return fmt.Errorf("update thumbnail: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrBookmarkNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner, b *models.Bookmark) error {
	return row.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &b.ThumbnailURL, timestamp{&b.CreatedAt})
}

func scanBookmarks(rows *sql.Rows) ([]models.Bookmark, error) {
	defer rows.Close()

	bookmarks := make([]models.Bookmark, 0)
	for rows.Next() {
		var b models.Bookmark
		if err := scanBookmark(rows, &b); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarks: %w", err)
	}
	return bookmarks, nil
}
