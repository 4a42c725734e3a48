package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/handlers"
)

// Middlewares are the per-group middlewares SetupRoutes applies.
// Nil entries are skipped.
type Middlewares struct {
	RequireAuth    func(http.Handler) http.Handler
	AuthRateLimit  func(http.Handler) http.Handler
	RequestTimeout time.Duration
}

func SetupRoutes(r chi.Router, h *handlers.Handler, mw Middlewares) {
	// Probes and metrics
	r.Get("/health", h.Health)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", h.Metrics())

	r.Route("/api", func(r chi.Router) {
		if mw.RequestTimeout > 0 {
			r.Use(chimw.Timeout(mw.RequestTimeout))
		}

		// Public auth routes
		r.Group(func(r chi.Router) {
			use(r, mw.AuthRateLimit)
			r.Post("/auth/signup", h.Signup)
			r.Post("/auth/signin", h.Signin)
		})

		r.Group(func(r chi.Router) {
			use(r, mw.RequireAuth)

			r.Post("/auth/signout", h.Signout)
			r.Get("/auth/me", h.Me)

			r.Get("/dashboard", h.Dashboard)
			r.Get("/activity", h.ListActivity)

			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", h.ListBookmarks)
				r.Post("/", h.CreateBookmark)
				r.Get("/search", h.SearchBookmarks)
				r.Post("/import", h.ImportBookmarks)
				r.Get("/export", h.ExportBookmarks)
				r.Post("/check", h.CheckLinks)
				r.Delete("/{id}", h.DeleteBookmark)
				r.Post("/{id}/thumbnail", h.UploadThumbnail)
			})
		})
	})

	// Long-lived, so outside the request timeout. Authenticates itself.
	r.Get("/ws/bookmarks", h.BookmarkWebSocket)
}

func use(r chi.Router, mw func(http.Handler) http.Handler) {
	if mw != nil {
		r.Use(mw)
	}
}
