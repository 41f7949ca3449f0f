package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/legalease/config"
	"github.com/yoockh/legalease/internal/api/handlers"
	"github.com/yoockh/legalease/internal/api/middleware"
	"github.com/yoockh/legalease/internal/api/routes"
	"github.com/yoockh/legalease/internal/cache"
	"github.com/yoockh/legalease/internal/extract"
	"github.com/yoockh/legalease/internal/logger"
	"github.com/yoockh/legalease/internal/providers/llm"
	"github.com/yoockh/legalease/internal/providers/stt"
	mongorepo "github.com/yoockh/legalease/internal/repositories/mongo"
	pgrepo "github.com/yoockh/legalease/internal/repositories/postgres"
	"github.com/yoockh/legalease/internal/services"
	"github.com/yoockh/legalease/internal/storage"
	"github.com/yoockh/legalease/internal/workers"
	"github.com/yoockh/legalease/internal/workspace"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init MongoDB
	var (
		sessionSvc  services.SessionService
		questionSvc services.QuestionService
	)
	if cfg.Mongo.URI != "" {
		if err := config.InitMongo(cfg.Mongo); err != nil {
			log.WithError(err).Fatal("MongoDB init error")
		}
		if err := config.EnsureMongoIndexes(); err != nil {
			log.WithError(err).Warn("failed to ensure MongoDB indexes")
		}
		sessionSvc = services.NewSessionService(mongorepo.NewSessionRepo(config.MongoDatabase))
		questionSvc = services.NewQuestionService(mongorepo.NewQuestionRepo(config.MongoDatabase), cfg.Mongo.QuestionTTL)
		log.Info("MongoDB connected")
	}

	// Init PostgreSQL
	var (
		documentRepo pgrepo.DocumentRepository
		convoSvc     services.ConversationService
	)
	if cfg.Postgres.URI != "" {
		if err := config.InitPostgres(cfg.Postgres); err != nil {
			log.WithError(err).Fatal("PostgreSQL init error")
		}
		documentRepo = pgrepo.NewDocumentRepo(config.PostgresDB)
		convoSvc = services.NewConversationService(pgrepo.NewConversationRepo(config.PostgresDB))
		log.Info("PostgreSQL connected")
	}

	// Init Redis
	if cfg.Redis.Addr != "" {
		if err := config.InitRedis(cfg.Redis); err != nil {
			log.WithError(err).Fatal("Redis init error")
		}
		log.Info("Redis connected")
	}

	gemini, err := llm.NewVertexGemini(ctx, cfg.Vertex.ProjectID, cfg.Vertex.Location, cfg.Vertex.Model, cfg.Vertex.Timeout)
	if err != nil {
		log.WithError(err).Fatal("failed to init Vertex AI")
	}
	defer gemini.Close()

	var transcriber services.Transcriber
	if cfg.EnableSTT {
		speech, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.WithError(err).Warn("speech-to-text disabled")
		} else {
			defer speech.Close()
			transcriber = speech
		}
	}

	var reportCache cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		reportCache = cache.NewRedisCache(config.RedisClient, "legalease")
	case "memory":
		reportCache = cache.NewMemoryCache(10 * time.Minute)
	}

	uploader := newUploader(ctx, cfg.Storage, log)

	documentSvc := services.NewDocumentService(extract.New(log), documentRepo, uploader, cfg.MaxUploadBytes, log)
	reportSvc := services.NewReportService(gemini, reportCache, cfg.Cache.TTL, log)

	var observer workspace.SessionObserver
	if sessionSvc != nil {
		observer = sessionSvc
	}
	assistant := services.NewAssistantService(services.AssistantDeps{
		Store:         workspace.NewStore(cfg.DefaultLanguage),
		Manager:       workspace.NewManager(gemini, observer, log),
		Documents:     documentSvc,
		Reports:       reportSvc,
		Conversations: convoSvc,
		Transcriber:   transcriber,
		Logger:        log,
	})

	deps := routes.Deps{
		Documents: handlers.NewDocumentHandler(assistant, documentSvc, cfg.MaxUploadBytes),
		Workspace: handlers.NewWorkspaceHandler(assistant),
		Reports:   handlers.NewReportHandler(assistant, cfg.MaxUploadBytes),
		Chat:      handlers.NewChatHandler(assistant),
		Auth: middleware.JWTConfig{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.JWTIssuer,
			Audience: cfg.Auth.JWTAudience,
		},
	}
	if sessionSvc != nil {
		deps.Session = handlers.NewSessionHandler(sessionSvc)
	}
	if convoSvc != nil {
		deps.Conversation = handlers.NewConversationHandler(convoSvc)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	var pool *workers.QuestionWorkerPool
	if config.RedisClient != nil && questionSvc != nil {
		deps.WS = handlers.NewWSHandler(assistant, questionSvc, config.RedisClient, cfg.Workers.Stream, cfg.AllowedOrigins, log)
		if cfg.Workers.Count > 0 {
			pool = &workers.QuestionWorkerPool{
				Redis:          config.RedisClient,
				Questions:      questionSvc,
				Assistant:      assistant,
				NumWorkers:     cfg.Workers.Count,
				Logger:         log,
				Stream:         cfg.Workers.Stream,
				Group:          cfg.Workers.Group,
				ConsumerPrefix: hostname(),
			}
			if err := pool.Start(workerCtx); err != nil {
				log.WithError(err).Fatal("failed to start question workers")
			}
			log.WithField("workers", cfg.Workers.Count).Info("question workers started")
		}
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log, "/ping"))
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	routes.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	stopWorkers()
	if pool != nil {
		pool.Wait()
	}
	if config.RedisClient != nil {
		_ = config.RedisClient.Close()
	}
	if config.MongoClient != nil {
		_ = config.MongoClient.Disconnect(shutdownCtx)
	}
	log.Info("server exited gracefully")
}

func newUploader(ctx context.Context, cfg config.StorageConfig, log *logrus.Logger) storage.Uploader {
	switch cfg.Backend {
	case "gcs":
		u, err := storage.NewGCSUploader(ctx, cfg.GCSBucket)
		if err != nil {
			log.WithError(err).Fatal("failed to init GCS")
		}
		return u
	case "minio":
		u, err := storage.NewMinioUploader(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to init MinIO")
		}
		if err := u.EnsureBucket(ctx); err != nil {
			log.WithError(err).Fatal("failed to ensure MinIO bucket")
		}
		return u
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "c"
	}
	return h
}
