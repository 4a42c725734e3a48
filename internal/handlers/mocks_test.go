package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/importer"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/middleware"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/services"
)

var errNotImplemented = errors.New("not implemented")

type mockAuthService struct {
	signupFn       func(ctx context.Context, email, password string) (*services.AuthResult, error)
	signinFn       func(ctx context.Context, email, password string) (*services.AuthResult, error)
	signoutFn      func(ctx context.Context, userID uuid.UUID, token string) error
	authenticateFn func(ctx context.Context, token string) (uuid.UUID, error)
	userFn         func(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, email, password string) (*services.AuthResult, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, password)
	}
	return nil, errNotImplemented
}

func (m *mockAuthService) Signin(ctx context.Context, email, password string) (*services.AuthResult, error) {
	if m.signinFn != nil {
		return m.signinFn(ctx, email, password)
	}
	return nil, errNotImplemented
}

func (m *mockAuthService) Signout(ctx context.Context, userID uuid.UUID, token string) error {
	if m.signoutFn != nil {
		return m.signoutFn(ctx, userID, token)
	}
	return nil
}

func (m *mockAuthService) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, token)
	}
	return uuid.Nil, errNotImplemented
}

func (m *mockAuthService) User(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if m.userFn != nil {
		return m.userFn(ctx, userID)
	}
	return &models.User{ID: userID, Email: "raj@example.com", IsActive: true}, nil
}

type mockBookmarkService struct {
	listFn       func(ctx context.Context, userID uuid.UUID, opts services.ListOptions) (*services.BookmarkPage, error)
	createFn     func(ctx context.Context, userID uuid.UUID, title, rawURL string) (*models.Bookmark, error)
	deleteFn     func(ctx context.Context, userID, id uuid.UUID) error
	dashboardFn  func(ctx context.Context, user *models.User) (*services.Dashboard, error)
	searchFn     func(ctx context.Context, userID uuid.UUID, query string, limit int) ([]services.SearchResult, error)
	importFn     func(ctx context.Context, userID uuid.UUID, format importer.Format, r io.Reader) (*models.ImportResult, error)
	exportFn     func(ctx context.Context, userID uuid.UUID, w io.Writer) error
	thumbnailFn  func(ctx context.Context, userID, id uuid.UUID, file io.Reader) (*models.Bookmark, error)
	checkLinksFn func(ctx context.Context, userID uuid.UUID) ([]models.LinkCheckResult, error)
}

func (m *mockBookmarkService) List(ctx context.Context, userID uuid.UUID, opts services.ListOptions) (*services.BookmarkPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, opts)
	}
	return &services.BookmarkPage{}, nil
}

func (m *mockBookmarkService) Create(ctx context.Context, userID uuid.UUID, title, rawURL string) (*models.Bookmark, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, title, rawURL)
	}
	return nil, errNotImplemented
}

func (m *mockBookmarkService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockBookmarkService) Dashboard(ctx context.Context, user *models.User) (*services.Dashboard, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx, user)
	}
	return &services.Dashboard{User: user.Profile()}, nil
}

func (m *mockBookmarkService) Search(ctx context.Context, userID uuid.UUID, query string, limit int) ([]services.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, userID, query, limit)
	}
	return nil, nil
}

func (m *mockBookmarkService) Import(ctx context.Context, userID uuid.UUID, format importer.Format, r io.Reader) (*models.ImportResult, error) {
	if m.importFn != nil {
		return m.importFn(ctx, userID, format, r)
	}
	return &models.ImportResult{}, nil
}

func (m *mockBookmarkService) Export(ctx context.Context, userID uuid.UUID, w io.Writer) error {
	if m.exportFn != nil {
		return m.exportFn(ctx, userID, w)
	}
	return nil
}

func (m *mockBookmarkService) AttachThumbnail(ctx context.Context, userID, id uuid.UUID, file io.Reader) (*models.Bookmark, error) {
	if m.thumbnailFn != nil {
		return m.thumbnailFn(ctx, userID, id, file)
	}
	return nil, errNotImplemented
}

func (m *mockBookmarkService) CheckLinks(ctx context.Context, userID uuid.UUID) ([]models.LinkCheckResult, error) {
	if m.checkLinksFn != nil {
		return m.checkLinksFn(ctx, userID)
	}
	return []models.LinkCheckResult{}, nil
}

type testOption func(*Deps)

func withAuth(a *mockAuthService) testOption {
	return func(d *Deps) { d.Auth = a }
}

func withHub(hub EventHub) testOption {
	return func(d *Deps) { d.Hub = hub }
}

func withChecks(checks ...HealthCheck) testOption {
	return func(d *Deps) { d.Checks = checks }
}

func newTestHandler(t *testing.T, bookmarks *mockBookmarkService, opts ...testOption) *Handler {
	t.Helper()
	d := Deps{
		Auth:      &mockAuthService{},
		Bookmarks: bookmarks,
		Log:       logger.NewNop(),
		Version:   "test",
	}
	for _, opt := range opts {
		opt(&d)
	}
	return New(d)
}

// serve runs req through a chi router so URL params resolve, with the session set when userID != uuid.Nil.
func serve(h http.HandlerFunc, pattern string, req *http.Request, userID uuid.UUID) *httptest.ResponseRecorder {
	if userID != uuid.Nil {
		req = req.WithContext(middleware.WithSession(req.Context(), userID, "token-"+userID.String()))
	}
	r := chi.NewRouter()
	r.MethodFunc(req.Method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
