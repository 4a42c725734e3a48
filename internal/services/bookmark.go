package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/apperrors"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/database"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/exporter"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/importer"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/metrics"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
	"github.com/AnshRaj112/smart-bookmarks-backend/pkg/utils"
)

const (
	DefaultPageSize  = 20
	MaxPageSize      = 100
	maxImportEntries = 5000

	// fillTimeout bounds a shared cache fill, which outlives the request that started it.
	fillTimeout = 5 * time.Second
)

// BookmarkStore is the persistence contract for bookmarks. Every method is owner-scoped.
type BookmarkStore interface {
	Insert(ctx context.Context, b *models.Bookmark) error
	InsertMany(ctx context.Context, bookmarks []models.Bookmark) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Bookmark, error)
	ListAllByUser(ctx context.Context, userID uuid.UUID) ([]models.Bookmark, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Bookmark, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetThumbnail(ctx context.Context, userID, id uuid.UUID, thumbnailURL string) error
}

// LinkProber checks bookmark URLs.
type LinkProber interface {
	Check(ctx context.Context, bookmarks []models.Bookmark) []models.LinkCheckResult
}

// ListOptions selects a page of bookmarks. Zero values mean the first default page.
type ListOptions struct {
	Limit int
	Skip  int
}

// BookmarkPage is one page of a user's bookmarks plus the overall count.
// Limit and Skip are the effective paging values after clamping.
type BookmarkPage struct {
	Bookmarks []models.Bookmark `json:"bookmarks"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Skip      int               `json:"skip"`
}

// Dashboard is everything the signed-in landing view needs in one call.
type Dashboard struct {
	User      models.UserProfile `json:"user"`
	Bookmarks []models.Bookmark  `json:"bookmarks"`
	Total     int                `json:"total"`
}

// BookmarkDeps collects the collaborators of BookmarkService. Store is required;
// nil optional fields fall back to no-ops.
type BookmarkDeps struct {
	Store        BookmarkStore
	Cache        Cache
	CacheTTL     time.Duration
	CacheMetrics *metrics.CacheMetrics
	Publisher    Publisher
	Activity     ActivityLog
	Uploader     ThumbnailUploader
	Links        LinkProber
	Clock        clockwork.Clock
	Log          logger.Logger
}

type BookmarkService struct {
	store        BookmarkStore
	cache        Cache
	cacheTTL     time.Duration
	cacheMetrics *metrics.CacheMetrics
	publisher    Publisher
	activity     ActivityLog
	uploader     ThumbnailUploader
	links        LinkProber
	clock        clockwork.Clock
	log          logger.Logger

	fills singleflight.Group
}

func NewBookmarkService(deps BookmarkDeps) *BookmarkService {
	s := &BookmarkService{
		store:        deps.Store,
		cache:        deps.Cache,
		cacheTTL:     deps.CacheTTL,
		cacheMetrics: deps.CacheMetrics,
		publisher:    deps.Publisher,
		activity:     deps.Activity,
		uploader:     deps.Uploader,
		links:        deps.Links,
		clock:        deps.Clock,
		log:          deps.Log,
	}
	if s.activity == nil {
		s.activity = NopActivityLog{}
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = DefaultCacheTTL
	}
	return s
}

// bookmarksCacheKey names the cached first page of userID at one cache generation.
func bookmarksCacheKey(userID uuid.UUID, generation int64) string {
	return CacheKey("bookmarks", fmt.Sprintf("%s:%d", userID, generation))
}

func bookmarksGenerationKey(userID uuid.UUID) string {
	return CacheKey("bookmarks:gen", userID.String())
}

// List returns a page of the user's bookmarks, newest first. The default first
// page is served from the cache when possible.
//
// Cached pages are keyed by the user's cache generation, which every write bumps.
// The generation is read before the rows, so a fill racing a write stores its page
// under a generation that is already retired and never served again.
func (s *BookmarkService) List(ctx context.Context, userID uuid.UUID, opts ListOptions) (*BookmarkPage, error) {
	limit, skip, err := normalizePage(opts)
	if err != nil {
		return nil, err
	}

	if s.cache == nil || limit != DefaultPageSize || skip != 0 {
		return s.loadPage(ctx, userID, limit, skip)
	}

	generation, err := s.cacheGeneration(ctx, userID)
	if err != nil {
		s.log.Warn("bookmark cache generation read failed", logger.String("user_id", userID.String()), logger.Error(err))
		return s.loadPage(ctx, userID, limit, skip)
	}

	key := bookmarksCacheKey(userID, generation)
	var cached BookmarkPage
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("bookmark cache read failed", logger.String("user_id", userID.String()), logger.Error(err))
	}
	if hit {
		s.countCache(true)
		return &cached, nil
	}
	s.countCache(false)

	fill := s.fills.DoChan(key, func() (interface{}, error) {
		// Every caller waiting on key shares this fill, so it must not end with the first one.
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		page, err := s.loadPage(fillCtx, userID, limit, skip)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fillCtx, key, page, s.cacheTTL); err != nil {
			s.log.Warn("bookmark cache write failed", logger.String("user_id", userID.String()), logger.Error(err))
		}
		return page, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-fill:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*BookmarkPage), nil
	}
}

// cacheGeneration returns 0 until the user's first write.
func (s *BookmarkService) cacheGeneration(ctx context.Context, userID uuid.UUID) (int64, error) {
	var generation int64
	if _, err := s.cache.Get(ctx, bookmarksGenerationKey(userID), &generation); err != nil {
		return 0, err
	}
	return generation, nil
}

func normalizePage(opts ListOptions) (int, int, error) {
	if opts.Skip < 0 {
		return 0, 0, apperrors.Validation("skip must not be negative")
	}
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return limit, opts.Skip, nil
}

func (s *BookmarkService) loadPage(ctx context.Context, userID uuid.UUID, limit, skip int) (*BookmarkPage, error) {
	bookmarks, err := s.store.ListByUser(ctx, userID, limit, skip)
	if err != nil {
		return nil, apperrors.Internal("failed to load bookmarks", err)
	}
	total, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to count bookmarks", err)
	}
	return &BookmarkPage{Bookmarks: bookmarks, Total: total, Limit: limit, Skip: skip}, nil
}

func (s *BookmarkService) countCache(hit bool) {
	if s.cacheMetrics == nil {
		return
	}
	if hit {
		s.cacheMetrics.Hits.Inc()
	} else {
		s.cacheMetrics.Misses.Inc()
	}
}

// Create saves a bookmark for userID and returns it.
func (s *BookmarkService) Create(ctx context.Context, userID uuid.UUID, title, rawURL string) (*models.Bookmark, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)
	if err := utils.ValidateTitle(title); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := utils.ValidateURL(rawURL); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	b := &models.Bookmark{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		URL:       rawURL,
		CreatedAt: s.now(),
	}
	if err := s.store.Insert(ctx, b); err != nil {
		return nil, apperrors.Internal("failed to create bookmark", err)
	}

	s.invalidate(ctx, userID)
	s.publish(ctx, models.BookmarkEvent{
		Type:       models.EventBookmarkCreated,
		UserID:     userID.String(),
		Bookmark:   b,
		BookmarkID: b.ID.String(),
	})
	s.activity.Record(ctx, models.Activity{
		UserID:     userID.String(),
		Action:     models.ActionBookmarkCreated,
		BookmarkID: b.ID.String(),
		Detail:     b.URL,
		CreatedAt:  b.CreatedAt,
	})
	return b, nil
}

// Delete removes one of the user's bookmarks. Foreign ids are reported as not found.
func (s *BookmarkService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, database.ErrBookmarkNotFound) {
			return apperrors.NotFound("Bookmark not found")
		}
		return apperrors.Internal("failed to delete bookmark", err)
	}

	s.invalidate(ctx, userID)
	s.publish(ctx, models.BookmarkEvent{
		Type:       models.EventBookmarkDeleted,
		UserID:     userID.String(),
		BookmarkID: id.String(),
	})
	s.activity.Record(ctx, models.Activity{
		UserID:     userID.String(),
		Action:     models.ActionBookmarkDeleted,
		BookmarkID: id.String(),
		CreatedAt:  s.now(),
	})
	return nil
}

func (s *BookmarkService) Dashboard(ctx context.Context, user *models.User) (*Dashboard, error) {
	page, err := s.List(ctx, user.ID, ListOptions{})
	if err != nil {
		return nil, err
	}
	return &Dashboard{User: user.Profile(), Bookmarks: page.Bookmarks, Total: page.Total}, nil
}

func (s *BookmarkService) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Validation("Search query is required")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > MaxPageSize {
		limit = MaxPageSize
	}

	all, err := s.store.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load bookmarks", err)
	}
	return FuzzySearchBookmarks(all, query, limit), nil
}

// Import reads a bookmark file and inserts every valid, new URL in one transaction.
func (s *BookmarkService) Import(ctx context.Context, userID uuid.UUID, format importer.Format, r io.Reader) (*models.ImportResult, error) {
	entries, err := importer.Parse(format, r)
	if err != nil {
		return nil, apperrors.Validation("Could not parse bookmark file: " + err.Error())
	}
	if len(entries) > maxImportEntries {
		return nil, apperrors.Validation("Bookmark file has too many entries").
			WithContext("max_entries", maxImportEntries)
	}

	existing, err := s.store.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load bookmarks", err)
	}
	seen := make(map[string]struct{}, len(existing)+len(entries))
	for _, b := range existing {
		seen[b.URL] = struct{}{}
	}

	now := s.now()
	result := &models.ImportResult{}
	batch := make([]models.Bookmark, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		href := strings.TrimSpace(e.URL)
		if utils.ValidateURL(href) != nil || utils.ValidateTitle(title) != nil {
			result.Skipped++
			continue
		}
		if _, dup := seen[href]; dup {
			result.Skipped++
			continue
		}
		seen[href] = struct{}{}

		createdAt := now
		if !e.AddedAt.IsZero() {
			createdAt = e.AddedAt.UTC()
		}
		batch = append(batch, models.Bookmark{
			ID:        uuid.New(),
			UserID:    userID,
			Title:     title,
			URL:       href,
			CreatedAt: createdAt,
		})
	}

	if len(batch) == 0 {
		return result, nil
	}
	if err := s.store.InsertMany(ctx, batch); err != nil {
		return nil, apperrors.Internal("failed to import bookmarks", err)
	}
	result.Imported = len(batch)

	s.invalidate(ctx, userID)
	for i := range batch {
		s.publish(ctx, models.BookmarkEvent{
			Type:       models.EventBookmarkCreated,
			UserID:     userID.String(),
			Bookmark:   &batch[i],
			BookmarkID: batch[i].ID.String(),
		})
	}
	s.activity.Record(ctx, models.Activity{
		UserID:    userID.String(),
		Action:    models.ActionBookmarksImported,
		Detail:    string(format),
		CreatedAt: now,
	})
	return result, nil
}

// Export writes all of the user's bookmarks as Netscape HTML, newest first.
func (s *BookmarkService) Export(ctx context.Context, userID uuid.UUID, w io.Writer) error {
	all, err := s.store.ListAllByUser(ctx, userID)
	if err != nil {
		return apperrors.Internal("failed to load bookmarks", err)
	}
	if err := exporter.WriteNetscape(w, all); err != nil {
		return apperrors.Internal("failed to write export", err)
	}
	return nil
}

// AttachThumbnail uploads an image and stores its URL on the bookmark.
func (s *BookmarkService) AttachThumbnail(ctx context.Context, userID, id uuid.UUID, file io.Reader) (*models.Bookmark, error) {
	if s.uploader == nil {
		return nil, apperrors.External("Thumbnail uploads are not configured", nil)
	}

	b, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, database.ErrBookmarkNotFound) {
			return nil, apperrors.NotFound("Bookmark not found")
		}
		return nil, apperrors.Internal("failed to load bookmark", err)
	}

	thumbnailURL, err := s.uploader.Upload(ctx, file)
	if err != nil {
		if errors.Is(err, ErrUploaderUnavailable) {
			return nil, apperrors.External(ErrUploaderUnavailable.Error(), err)
		}
		return nil, apperrors.External("Failed to upload thumbnail", err)
	}

	if err := s.store.SetThumbnail(ctx, userID, id, thumbnailURL); err != nil {
		if errors.Is(err, database.ErrBookmarkNotFound) {
			return nil, apperrors.NotFound("Bookmark not found")
		}
		return nil, apperrors.Internal("failed to save thumbnail", err)
	}
	b.ThumbnailURL = thumbnailURL

	s.invalidate(ctx, userID)
	return b, nil
}

// CheckLinks probes every bookmark URL of the user.
func (s *BookmarkService) CheckLinks(ctx context.Context, userID uuid.UUID) ([]models.LinkCheckResult, error) {
	if s.links == nil {
		return nil, apperrors.Internal("link checker is not configured", nil)
	}
	all, err := s.store.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load bookmarks", err)
	}
	return s.links.Check(ctx, all), nil
}

// now is truncated to microseconds, the finest precision Postgres keeps.
func (s *BookmarkService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s *BookmarkService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	// Pages cached under older generations expire with their TTL.
	if _, err := s.cache.Incr(ctx, bookmarksGenerationKey(userID)); err != nil {
		s.log.Warn("bookmark cache invalidation failed", logger.String("user_id", userID.String()), logger.Error(err))
	}
}

func (s *BookmarkService) publish(ctx context.Context, event models.BookmarkEvent) {
	if s.publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now().UTC()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish bookmark event",
			logger.String("user_id", event.UserID),
			logger.String("type", event.Type),
			logger.Error(err))
	}
}
