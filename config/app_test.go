package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/legalease/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VERTEX_PROJECT_ID", "proj")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("MONGO_URI", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_URI", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("QUESTION_WORKERS", "")

	cfg := Load()
	assert.Zero(t, cfg.Workers.Count)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, models.LanguageEnglish, cfg.DefaultLanguage)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "gemini-1.5-flash", cfg.Vertex.Model)
	assert.Equal(t, 60*time.Second, cfg.Vertex.Timeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Zero(t, cfg.Cache.TTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DEFAULT_LANGUAGE", "hi-IN")
	t.Setenv("REPORT_CACHE", "Redis")
	t.Setenv("REPORT_CACHE_TTL", "1h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := Load()
	assert.Equal(t, models.LanguageHindi, cfg.DefaultLanguage)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.Addr)
}

func TestValidateMissingGenerationCredential(t *testing.T) {
	t.Setenv("VERTEX_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("STORAGE_BACKEND", "s3")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VERTEX_PROJECT_ID is required")
	assert.Contains(t, err.Error(), `STORAGE_BACKEND "s3"`)
}

func TestRedisOptions(t *testing.T) {
	opt, err := RedisOptions("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opt.Addr)

	opt, err = RedisOptions("redis://:pw@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)
	assert.Equal(t, "pw", opt.Password)
}

func TestLoadAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://app.example.com, ,http://localhost:3000 ")

	cfg := Load()
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestWorkersDefaultOnlyWithQueueBackends(t *testing.T) {
	t.Setenv("VERTEX_PROJECT_ID", "proj")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("QUESTION_WORKERS", "")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("MONGO_URI", "")

	cfg := Load()
	assert.Zero(t, cfg.Workers.Count)
	require.NoError(t, cfg.Validate())

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg = Load()
	assert.Equal(t, 4, cfg.Workers.Count)
	require.NoError(t, cfg.Validate())
}

func TestExplicitWorkersRequireQueueBackends(t *testing.T) {
	t.Setenv("VERTEX_PROJECT_ID", "proj")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("QUESTION_WORKERS", "2")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_URI", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("MONGO_URI", "")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUESTION_WORKERS")
}
