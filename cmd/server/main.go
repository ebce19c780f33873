package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/petavatar/api/internal/client"
	"github.com/petavatar/api/internal/config"
	"github.com/petavatar/api/internal/handler"
	"github.com/petavatar/api/internal/middleware"
	"github.com/petavatar/api/internal/queue"
	"github.com/petavatar/api/internal/service"
	"github.com/petavatar/api/internal/store"
	"github.com/petavatar/api/internal/worker"
)

// @title          PetAvatar API
// @version        1.0
// @description    Backend API for PetAvatar — turns pet photos into professional human avatars.
// @host           localhost:8000
// @BasePath       /
// @securityDefinitions.apikey ApiKeyAuth
// @in             header
// @name           x-api-key
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	validate := validator.New()

	// Initialize storage client (falls back to in-memory storage if not configured)
	var storageClient client.StorageClient
	s3Configured := cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != ""
	if s3Configured {
		s3Client, err := client.NewS3Client(&cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 client: %v", err)
		}
		storageClient = s3Client
	} else {
		log.Println("Info: S3 storage not configured, using in-memory storage")
		storageClient = client.NewMemoryStorage()
	}

	// Initialize avatar AI client (mock fallback when unconfigured)
	aiClient := client.NewAvatarAIClient(&cfg.AvatarAI)
	if !aiClient.IsConfigured() {
		log.Println("Info: avatar AI not configured, using mock pipeline")
	}

	// Initialize store, queue and services
	jobStore := store.NewRedisStore(redisClient)
	enqueuer := queue.NewAsynqEnqueuer(asynqClient, &cfg.Queue, cfg.Pipeline.Deadline)

	ingestService := service.NewIngestService(jobStore, enqueuer, storageClient, &cfg.S3)
	jobService := service.NewJobService(jobStore, storageClient, &cfg.S3)

	// Initialize handlers
	ingestHandler := handler.NewIngestHandler(ingestService, validate)
	jobHandler := handler.NewJobHandler(jobService)
	eventHandler := handler.NewEventHandler(ingestService)

	// Initialize middleware
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(cfg.Auth.APIKey)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,x-api-key",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":     redisClient.Ping(c.Context()).Err() == nil,
				"s3":        s3Configured,
				"avatar_ai": aiClient.IsConfigured(),
				"auth":      cfg.Auth.APIKey != "",
			},
		})
	})

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	api := app.Group("/api", apiKeyMiddleware.Authenticate())
	api.Post("/uploads", rateLimiter.UploadsLimit(cfg.RateLimit.UploadsPerHour), ingestHandler.UploadGrant)
	api.Post("/process", rateLimiter.ProcessLimit(cfg.RateLimit.ProcessPerHour), ingestHandler.Process)
	api.Get("/jobs/:jobId/status", jobHandler.Status)
	api.Get("/jobs/:jobId/result", jobHandler.Result)

	// Storage event webhook (bucket notifications)
	app.Post("/events/storage", apiKeyMiddleware.Authenticate(), eventHandler.Storage)

	// Start Asynq worker server
	go startWorkerServer(cfg, jobStore, storageClient, aiClient)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobStore store.Store,
	storageClient client.StorageClient,
	aiClient client.AvatarAI,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				queue.QueueProcess: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	processWorker := worker.NewProcessWorker(jobStore, storageClient, aiClient, &cfg.S3, &cfg.Pipeline)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeProcess, processWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
