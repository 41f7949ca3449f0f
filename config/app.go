package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yoockh/legalease/internal/models"
)

// AppConfig holds all application configuration.
type AppConfig struct {
	Port            string
	GinMode         string
	LogLevel        string
	DefaultLanguage models.Language
	MaxUploadBytes  int64
	AllowedOrigins  []string

	Vertex   VertexConfig
	Auth     AuthConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Workers  WorkerConfig

	EnableSTT bool
}

type VertexConfig struct {
	ProjectID string
	Location  string
	Model     string
	Timeout   time.Duration
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

type MongoConfig struct {
	URI         string
	Database    string
	QuestionTTL time.Duration
}

type PostgresConfig struct {
	URI         string
	AutoMigrate bool
}

type RedisConfig struct {
	Addr string
}

type CacheConfig struct {
	Backend string // redis|memory|none
	TTL     time.Duration
}

type StorageConfig struct {
	Backend   string // gcs|minio|none
	GCSBucket string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type WorkerConfig struct {
	Count  int
	Stream string
	Group  string
}

// Load reads configuration from the environment. Call godotenv.Load first to
// pick up a .env file.
func Load() *AppConfig {
	lang, ok := models.ParseLanguage(getEnv("DEFAULT_LANGUAGE", string(models.DefaultLanguage)))
	if !ok {
		lang = models.DefaultLanguage
	}

	redisAddr := getEnv("REDIS_ADDR", "")
	if redisAddr == "" {
		redisAddr = getEnv("REDIS_URI", getEnv("REDIS_URL", ""))
	}
	mongoURI := getEnv("MONGO_URI", "")

	// queued questions need both the stream (Redis) and their records (Mongo)
	defaultWorkers := 0
	if redisAddr != "" && mongoURI != "" {
		defaultWorkers = 4
	}

	return &AppConfig{
		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "release"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultLanguage: lang,
		MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "")),

		Vertex: VertexConfig{
			ProjectID: getEnv("VERTEX_PROJECT_ID", getEnv("GOOGLE_CLOUD_PROJECT", "")),
			Location:  getEnv("VERTEX_LOCATION", "us-central1"),
			Model:     getEnv("VERTEX_MODEL", "gemini-1.5-flash"),
			Timeout:   getEnvAsDuration("VERTEX_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("SUPABASE_JWT_SECRET", ""),
			JWTIssuer:   getEnv("SUPABASE_JWT_ISSUER", ""),
			JWTAudience: getEnv("SUPABASE_JWT_AUDIENCE", ""),
		},
		Mongo: MongoConfig{
			URI:         mongoURI,
			Database:    getEnv("MONGO_DB", "legalease"),
			QuestionTTL: getEnvAsDuration("QUESTION_TTL", 24*time.Hour),
		},
		Postgres: PostgresConfig{
			URI:         getEnv("POSTGRES_URI", ""),
			AutoMigrate: getEnvAsBool("POSTGRES_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{Addr: redisAddr},
		Cache: CacheConfig{
			Backend: strings.ToLower(getEnv("REPORT_CACHE", "memory")),
			TTL:     getEnvAsDuration("REPORT_CACHE_TTL", 0),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", "none")),
			GCSBucket:      getEnv("GCS_BUCKET", ""),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "documents"),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Workers: WorkerConfig{
			Count:  getEnvAsInt("QUESTION_WORKERS", defaultWorkers),
			Stream: getEnv("QUESTION_STREAM", "question:stream"),
			Group:  getEnv("QUESTION_GROUP", "question-workers"),
		},
		EnableSTT: getEnvAsBool("ENABLE_STT", true),
	}
}

// Validate reports every configuration problem at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Vertex.ProjectID == "" {
		errs = append(errs, errors.New("VERTEX_PROJECT_ID is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET is required"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}

	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REPORT_CACHE=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("REPORT_CACHE %q is not one of redis|memory|none", c.Cache.Backend))
	}

	switch c.Storage.Backend {
	case "none":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			errs = append(errs, errors.New("STORAGE_BACKEND=gcs requires GCS_BUCKET"))
		}
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioAccessKey == "" || c.Storage.MinioSecretKey == "" {
			errs = append(errs, errors.New("STORAGE_BACKEND=minio requires MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q is not one of gcs|minio|none", c.Storage.Backend))
	}

	if c.Workers.Count > 0 && (c.Redis.Addr == "" || c.Mongo.URI == "") {
		errs = append(errs, errors.New("QUESTION_WORKERS > 0 requires REDIS_ADDR and MONGO_URI"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
