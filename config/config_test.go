package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	for _, key := range []string{"PORT", "GO_ENV", "JWT_TTL", "ISSUE_RATE_LIMIT", "MAX_UPLOAD_BYTES", "ALLOW_ROLE_OVERRIDE", "CORS_ORIGINS", "REDIS_DB"} {
		t.Setenv(key, "")
	}

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "civicsync", cfg.MongoDatabase)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.IssueRateLimit)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.False(t, cfg.AllowRoleOverride)
	assert.False(t, cfg.Development())
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GO_ENV", "development")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("ALLOW_ROLE_OVERRIDE", "true")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://civicsync.example ,")
	t.Setenv("REDIS_DB", "2")

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Development())
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.AllowRoleOverride)
	assert.Equal(t, []string{"http://localhost:3000", "https://civicsync.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ISSUE_RATE_LIMIT", "ten")
	_, _, err := Load()
	assert.ErrorContains(t, err, "ISSUE_RATE_LIMIT")

	t.Setenv("ISSUE_RATE_LIMIT", "")
	t.Setenv("ADMIN_EMAIL", "ada@example.com")
	t.Setenv("ADMIN_PASSWORD", "")
	_, _, err = Load()
	assert.ErrorContains(t, err, "ADMIN_PASSWORD")

	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("JWT_SECRET", "")
	_, _, err = Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger("development"))
	assert.NotNil(t, NewLogger("production"))
}
