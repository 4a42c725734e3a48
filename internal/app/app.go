package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/config"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/database"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/handlers"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/logger"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/metrics"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/services"
	"github.com/AnshRaj112/smart-bookmarks-backend/internal/version"
)

// App owns every long-lived resource of the server process.
type App struct {
	cfg    *config.Config
	log    logger.Logger
	server *http.Server

	db          *sql.DB
	redisClient *goredis.Client
	mongoClient *mongo.Client
	hub         *services.Hub

	// stopBackground ends goroutines started by New (rate limiter sweeps).
	stopBackground context.CancelFunc
}

// New connects to every backing store and wires the HTTP server. Resources opened
// before a failure are closed again.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	ready := false
	defer func() {
		if !ready {
			a.close()
		}
	}()

	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := database.Migrate(ctx, db, dialect); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", dialect, err)
	}
	log.Info("✅ Database ready", logger.String("driver", string(dialect)))

	log.Info("Connecting to Redis...")
	redisOpts := database.DefaultRedisOptions()
	redisOpts.ConnectTimeout = cfg.RedisConnectTimeout
	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURI, redisOpts, log)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redisClient = redisClient
	log.Info("✅ Redis connected")

	var activity services.ActivityLog = services.NopActivityLog{}
	if cfg.MongoURI != "" {
		log.Info("Connecting to MongoDB...")
		client, mdb, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.mongoClient = client

		mongoLog := services.NewMongoActivityLog(mdb, log)
		if err := mongoLog.EnsureIndexes(ctx); err != nil {
			log.Warn("failed to ensure activity indexes", logger.Error(err))
		}
		activity = mongoLog
		log.Info("✅ MongoDB connected", logger.String("database", mdb.Name()))
	} else {
		log.Info("MONGODB_URI not set, activity log disabled")
	}

	var uploader services.ThumbnailUploader
	if cfg.CloudinaryEnabled() {
		u, err := services.NewCloudinaryUploader(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			log.Warn("Cloudinary unavailable, thumbnail uploads disabled", logger.Error(err))
		} else {
			uploader = u
			log.Info("✅ Cloudinary service initialized")
		}
	} else {
		log.Info("Cloudinary credentials not found, thumbnail uploads disabled")
	}

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)
	cacheMetrics := metrics.NewCacheMetrics(reg)
	if cu, ok := uploader.(*services.CloudinaryUploader); ok {
		metrics.RegisterBreakerState(reg, "cloudinary", func() float64 { return float64(cu.State()) })
	}

	clock := clockwork.NewRealClock()
	sessions := services.NewSessionStore(redisClient, cfg.SessionTTL)
	a.hub = services.NewHub(redisClient, log, wsMetrics)

	authService := services.NewAuthService(database.NewUserRepository(db), sessions, activity, clock)
	bookmarkService := services.NewBookmarkService(services.BookmarkDeps{
		Store:        database.NewBookmarkRepository(db),
		Cache:        services.NewRedisCache(redisClient),
		CacheTTL:     cfg.CacheTTL,
		CacheMetrics: cacheMetrics,
		Publisher:    a.hub,
		Activity:     activity,
		Uploader:     uploader,
		Links:        services.NewLinkChecker(cfg.LinkCheckConcurrency, cfg.LinkCheckTimeout),
		Clock:        clock,
		Log:          log,
	})

	h := handlers.New(handlers.Deps{
		Auth:           authService,
		Bookmarks:      bookmarkService,
		Activity:       activity,
		Hub:            a.hub,
		Metrics:        metrics.Handler(reg),
		Checks:         a.healthChecks(),
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
		StartTime:      time.Now(),
		Version:        version.String(),
	})

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopBackground = cancel

	router := newRouter(bgCtx, routerDeps{
		cfg:         cfg,
		log:         log,
		handler:     h,
		sessions:    sessions,
		redisClient: redisClient,
		httpMetrics: httpMetrics,
	})

	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	ready = true
	return a, nil
}

// openDatabase connects to the configured SQL backend.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, database.Dialect, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := database.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, "", err
		}
		return db, database.DialectSQLite, nil
	case config.DriverPostgres:
		db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
		if err != nil {
			return nil, "", err
		}
		return db, database.DialectPostgres, nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func (a *App) healthChecks() []handlers.HealthCheck {
	checks := []handlers.HealthCheck{
		{Name: "database", Check: a.db.PingContext},
		{Name: "redis", Check: func(ctx context.Context) error {
			return a.redisClient.Ping(ctx).Err()
		}},
	}
	if a.mongoClient != nil {
		checks = append(checks, handlers.HealthCheck{Name: "mongodb", Check: func(ctx context.Context) error {
			return a.mongoClient.Ping(ctx, nil)
		}})
	}
	return checks
}

// Run serves until SIGINT/SIGTERM or a server error, then shuts down within
// ShutdownTimeout and releases every connection.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	go a.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("🚀 Smart Bookmarks backend running",
			logger.String("addr", a.server.Addr),
			logger.String("version", version.String()),
			logger.String("env", a.cfg.Environment))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	a.log.Info("✅ HTTP server stopped")
	return nil
}

// close releases whatever New managed to open. Safe on a partially built App.
func (a *App) close() {
	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("failed to close redis", logger.Error(err))
		}
	}
	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.log.Warn("failed to disconnect mongodb", logger.Error(err))
		}
		cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close database", logger.Error(err))
		}
	}
}
