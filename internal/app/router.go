package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/config"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/handlers"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/metrics"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/middleware"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/routes"
)

type routerDeps struct {
	cfg         *config.Config
	log         logger.Logger
	handler     *handlers.Handler
	sessions    middleware.SessionValidator
	redisClient *goredis.Client
	httpMetrics *metrics.HTTPMetrics
}

// newRouter builds the middleware chain and registers every route.
// ctx bounds the rate limiter cleanup goroutines.
func newRouter(ctx context.Context, d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog(d.log, d.cfg.TrustProxy))
	r.Use(d.httpMetrics.Middleware)

	// CORS first so preflight requests never hit a limiter.
	r.Use(middleware.CORS(d.cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit, plus the shared Redis window.
	// Other environments: Redis window only.
	var authLimit func(http.Handler) http.Handler
	if d.cfg.IsProduction() {
		global := middleware.NewGlobalRateLimiter(ctx, d.cfg.TrustProxy)
		for _, mw := range middleware.ProductionSecurity(d.cfg.AllowedHost, global) {
			r.Use(mw)
		}
		authLimit = middleware.NewAuthRateLimiter(ctx, d.cfg.TrustProxy).Middleware
		d.log.Info("✅ Production security enabled (security headers, host check, per-IP + login rate limiting)")
	}
	if d.redisClient != nil {
		r.Use(middleware.NewRedisRateLimit(d.redisClient, d.log, d.cfg.TrustProxy).Middleware)
	}

	routes.SetupRoutes(r, d.handler, routes.Middlewares{
		RequireAuth:    middleware.RequireAuth(d.sessions, d.log),
		AuthRateLimit:  authLimit,
		RequestTimeout: d.cfg.RequestTimeout,
	})
	return r
}
