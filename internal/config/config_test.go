package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"ENV", "HOST", "PORT", "ALLOWED_ORIGINS", "FRONTEND_URL",
	"DATABASE_DRIVER", "POSTGRES_URI", "SQLITE_PATH", "REDIS_URI", "MONGODB_URI", "MONGO_URI",
	"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET", "CLOUDINARY_FOLDER",
	"LOG_LEVEL", "PRETTY_LOG", "SHUTDOWN_TIMEOUT", "REQUEST_TIMEOUT", "REDIS_CONNECT_TIMEOUT",
	"SESSION_TTL", "CACHE_TTL", "LINK_CHECK_CONCURRENCY", "LINK_CHECK_TIMEOUT", "TRUST_PROXY",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URI", "redis://localhost:6379/0")
	t.Setenv("POSTGRES_URI", "postgres://localhost:5432/bookmarks?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 8, cfg.LinkCheckConcurrency)
	assert.True(t, cfg.PrettyLog)
	assert.Empty(t, cfg.AllowedHost)
	assert.False(t, cfg.CloudinaryEnabled())
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		wanted []string
	}{
		{
			name:   "postgres driver without anything",
			env:    map[string]string{},
			wanted: []string{"REDIS_URI", "POSTGRES_URI"},
		},
		{
			name:   "sqlite driver without path",
			env:    map[string]string{"DATABASE_DRIVER": "sqlite", "REDIS_URI": "redis://localhost:6379"},
			wanted: []string{"SQLITE_PATH"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Nil(t, cfg)

			var missing *MissingEnvError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.wanted, missing.Keys)
			assert.True(t, strings.HasPrefix(err.Error(), "Configuration Error: Missing required environment variables"))
		})
	}
}

func TestLoadInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URI", "redis://localhost:6379")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/bookmarks.db")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("PRETTY_LOG", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL")
	assert.Contains(t, err.Error(), "PRETTY_LOG")
}

func TestLoadUnsupportedDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URI", "redis://localhost:6379")
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestLoadProduction(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "Production")
	t.Setenv("HOST", "https://api.smartbookmarks.app:443/v1")
	t.Setenv("REDIS_URI", "redis://redis:6379")
	t.Setenv("POSTGRES_URI", "postgres://db/bookmarks")
	t.Setenv("ALLOWED_ORIGINS", "https://smartbookmarks.app, https://www.smartbookmarks.app ,https://SMARTBOOKMARKS.app")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "api.smartbookmarks.app", cfg.AllowedHost)
	assert.Equal(t, []string{"https://smartbookmarks.app", "https://www.smartbookmarks.app"}, cfg.AllowedOrigins)
	assert.False(t, cfg.PrettyLog)
	assert.True(t, cfg.CloudinaryEnabled())
}

func TestHostname(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://api.example.com", "api.example.com"},
		{"http://localhost:8080", "localhost"},
		{"api.example.com/path", "api.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := hostname(tt.in); got != tt.want {
			t.Errorf("hostname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
