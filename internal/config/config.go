package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Environment    string // ENV: production, development, etc.
	Host           string // Raw HOST env (e.g. https://api.smartbookmarks.app)
	AllowedHost    string // Hostname only for strict host check (production only)
	Port           string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
	TrustProxy     bool     // read client IPs from proxy headers

	DatabaseDriver string
	PostgresURI    string
	SQLitePath     string
	RedisURI       string
	MongoURI       string // optional; activity log is disabled when empty

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	LogLevel  string
	PrettyLog bool

	ShutdownTimeout     time.Duration
	RequestTimeout      time.Duration
	RedisConnectTimeout time.Duration
	SessionTTL          time.Duration
	CacheTTL            time.Duration

	LinkCheckConcurrency int
	LinkCheckTimeout     time.Duration
}

// MissingEnvError is returned by Load when required variables are not set.
type MissingEnvError struct {
	Keys []string
}

func (e *MissingEnvError) Error() string {
	return "Configuration Error: Missing required environment variables: " + strings.Join(e.Keys, ", ")
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	l := &loader{}

	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = parseOrigins(getEnv("FRONTEND_URL", "http://localhost:3000"))
	}

	driver := strings.ToLower(strings.TrimSpace(getEnv("DATABASE_DRIVER", DriverPostgres)))

	cfg := &Config{
		Environment:    env,
		Host:           host,
		AllowedHost:    allowedHost,
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: allowedOrigins,
		TrustProxy:     l.boolean("TRUST_PROXY", false),

		DatabaseDriver: driver,
		RedisURI:       l.require("REDIS_URI"),
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "")),

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "smart-bookmarks"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		PrettyLog: l.boolean("PRETTY_LOG", env != "production"),

		ShutdownTimeout:     l.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:      l.duration("REQUEST_TIMEOUT", 15*time.Second),
		RedisConnectTimeout: l.duration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		SessionTTL:          l.duration("SESSION_TTL", 7*24*time.Hour),
		CacheTTL:            l.duration("CACHE_TTL", 10*time.Minute),

		LinkCheckConcurrency: l.integer("LINK_CHECK_CONCURRENCY", 8),
		LinkCheckTimeout:     l.duration("LINK_CHECK_TIMEOUT", 10*time.Second),
	}

	switch driver {
	case DriverPostgres:
		cfg.PostgresURI = l.require("POSTGRES_URI")
	case DriverSQLite:
		cfg.SQLitePath = l.require("SQLITE_PATH")
	default:
		l.invalid = append(l.invalid, fmt.Sprintf("DATABASE_DRIVER: unsupported driver %q", driver))
	}

	if cfg.LinkCheckConcurrency <= 0 {
		l.invalid = append(l.invalid, "LINK_CHECK_CONCURRENCY: must be > 0")
	}

	if err := l.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CloudinaryEnabled reports whether all Cloudinary credentials are present.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// loader collects missing and malformed variables so Load can report all of them at once.
type loader struct {
	missing []string
	invalid []string
}

func (l *loader) require(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		l.missing = append(l.missing, key)
	}
	return v
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		l.invalid = append(l.invalid, fmt.Sprintf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (l *loader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.invalid = append(l.invalid, fmt.Sprintf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (l *loader) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.invalid = append(l.invalid, fmt.Sprintf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (l *loader) err() error {
	if len(l.missing) > 0 {
		return &MissingEnvError{Keys: l.missing}
	}
	if len(l.invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(l.invalid, "; "))
	}
	return nil
}

// hostname strips scheme, path and port from a HOST value.
func hostname(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !containsOrigin(out, part) {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.ToLower(o)
	for _, v := range list {
		if strings.ToLower(v) == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
