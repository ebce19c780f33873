package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
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

const testAPIKey = "test-api-key-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	storage *client.MemoryStorage
	store   store.Store
	worker  *worker.ProcessWorker
}

// setupApp creates a Fiber app identical to main.go but with in-memory
// storage and the unconfigured AI client, so the full pipeline runs on
// mock fallbacks. Redis must be running locally.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost — must be running)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})
	t.Cleanup(func() { redisClient.Close() })

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	s3cfg := &config.S3Config{
		UploadBucket:    "uploads-test",
		GeneratedBucket: "generated-test",
	}
	pipelineCfg := &config.PipelineConfig{
		StageMaxAttempts: 3,
		StageBaseDelay:   10 * time.Millisecond, // keeps retry paths fast
		Deadline:         time.Minute,
	}
	queueCfg := &config.QueueConfig{
		Concurrency: 1,
		MaxRetry:    3,
		Retention:   time.Minute,
	}

	storageClient := client.NewMemoryStorage()
	aiClient := client.NewAvatarAIClient(&config.AvatarAIConfig{}) // no base URL → mock pipeline

	jobStore := store.NewRedisStore(redisClient)
	enqueuer := queue.NewAsynqEnqueuer(asynqClient, queueCfg, pipelineCfg.Deadline)

	ingestService := service.NewIngestService(jobStore, enqueuer, storageClient, s3cfg)
	jobService := service.NewJobService(jobStore, storageClient, s3cfg)

	ingestHandler := handler.NewIngestHandler(ingestService, validate)
	jobHandler := handler.NewJobHandler(jobService)
	eventHandler := handler.NewEventHandler(ingestService)

	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(testAPIKey)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":     redisClient.Ping(c.Context()).Err() == nil,
				"s3":        false,
				"avatar_ai": aiClient.IsConfigured(),
				"auth":      true,
			},
		})
	})

	// Use very high rate limits so tests don't get blocked
	api := app.Group("/api", apiKeyMiddleware.Authenticate())
	api.Post("/uploads", rateLimiter.UploadsLimit(10000), ingestHandler.UploadGrant)
	api.Post("/process", rateLimiter.ProcessLimit(10000), ingestHandler.Process)
	api.Get("/jobs/:jobId/status", jobHandler.Status)
	api.Get("/jobs/:jobId/result", jobHandler.Result)

	app.Post("/events/storage", apiKeyMiddleware.Authenticate(), eventHandler.Storage)

	processWorker := worker.NewProcessWorker(jobStore, storageClient, aiClient, s3cfg, pipelineCfg)

	return &testApp{
		app:     app,
		storage: storageClient,
		store:   jobStore,
		worker:  processWorker,
	}
}

// seedUpload places a source image for a fresh job id and returns the id.
func seedUpload(t *testing.T, ta *testApp) (jobID, key string) {
	t.Helper()
	jobID = uuid.New().String()
	key = "uploads/" + jobID + "/original"
	ta.storage.Put("uploads-test", key, jpegBytes(), "image/jpeg")
	return jobID, key
}

// runWorker drives the worker synchronously for one job, standing in for
// an asynq delivery.
func runWorker(t *testing.T, ta *testApp, jobID, key string) {
	t.Helper()
	task, err := queue.NewProcessTask(jobID, key)
	if err != nil {
		t.Fatalf("failed to build task: %v", err)
	}
	if err := ta.worker.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("worker failed: %v", err)
	}
}

func jpegBytes() []byte {
	// JPEG SOI + JFIF marker, enough for content sniffing.
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs a request carrying the test API key.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	return doRequest(app, method, path, body, map[string]string{
		"x-api-key": testAPIKey,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts the error code from an error envelope.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := parseJSON(t, resp)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}
