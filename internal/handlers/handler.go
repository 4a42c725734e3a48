package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/importer"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/services"
)

// AuthService is the subset of services.AuthService used by the handlers.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*services.AuthResult, error)
	Signin(ctx context.Context, email, password string) (*services.AuthResult, error)
	Signout(ctx context.Context, userID uuid.UUID, token string) error
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
	User(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// BookmarkService is the subset of services.BookmarkService used by the handlers.
type BookmarkService interface {
	List(ctx context.Context, userID uuid.UUID, opts services.ListOptions) (*services.BookmarkPage, error)
	Create(ctx context.Context, userID uuid.UUID, title, rawURL string) (*models.Bookmark, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Dashboard(ctx context.Context, user *models.User) (*services.Dashboard, error)
	Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]services.SearchResult, error)
	Import(ctx context.Context, userID uuid.UUID, format importer.Format, r io.Reader) (*models.ImportResult, error)
	Export(ctx context.Context, userID uuid.UUID, w io.Writer) error
	AttachThumbnail(ctx context.Context, userID, id uuid.UUID, file io.Reader) (*models.Bookmark, error)
	CheckLinks(ctx context.Context, userID uuid.UUID) ([]models.LinkCheckResult, error)
}

// ActivityLister reads the activity log.
type ActivityLister interface {
	List(ctx context.Context, userID string, limit int) ([]models.Activity, error)
}

// EventHub hands out realtime subscriptions.
type EventHub interface {
	Subscribe(userID uuid.UUID) *services.Subscription
}

// HealthCheck is a named readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps collects everything the handlers need.
type Deps struct {
	Auth           AuthService
	Bookmarks      BookmarkService
	Activity       ActivityLister
	Hub            EventHub
	Metrics        http.Handler
	Checks         []HealthCheck
	AllowedOrigins []string
	Log            logger.Logger
	StartTime      time.Time
	Version        string
}

// Handler serves the HTTP and websocket API.
type Handler struct {
	auth      AuthService
	bookmarks BookmarkService
	activity  ActivityLister
	hub       EventHub
	metrics   http.Handler
	checks    []HealthCheck
	log       logger.Logger
	startTime time.Time
	version   string

	upgrader websocket.Upgrader
}

func New(d Deps) *Handler {
	h := &Handler{
		auth:      d.Auth,
		bookmarks: d.Bookmarks,
		activity:  d.Activity,
		hub:       d.Hub,
		metrics:   d.Metrics,
		checks:    d.Checks,
		log:       d.Log,
		startTime: d.StartTime,
		version:   d.Version,
	}
	if h.activity == nil {
		h.activity = services.NopActivityLog{}
	}
	if h.log == nil {
		h.log = logger.NewNop()
	}
	if h.metrics == nil {
		h.metrics = http.NotFoundHandler()
	}
	if h.startTime.IsZero() {
		h.startTime = time.Now()
	}

	origins := d.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Non-browser clients send no Origin.
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range origins {
				if strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Metrics serves the Prometheus registry.
func (h *Handler) Metrics() http.Handler {
	return h.metrics
}
