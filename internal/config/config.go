package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	S3        S3Config
	AvatarAI  AvatarAIConfig
	Pipeline  PipelineConfig
	Queue     QueueConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	APIKey string
}

type RateLimitConfig struct {
	ProcessPerHour int
	UploadsPerHour int
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UploadBucket    string
	GeneratedBucket string
}

type AvatarAIConfig struct {
	BaseURL string
	APIKey  string
	Timeout int // seconds, per stage call
}

type PipelineConfig struct {
	StageMaxAttempts int
	StageBaseDelay   time.Duration
	Deadline         time.Duration // wall-clock ceiling for the whole pipeline
}

type QueueConfig struct {
	Concurrency int
	MaxRetry    int
	Retention   time.Duration
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("API_KEY")
	readSecret("S3_ACCESS_KEY_ID")
	readSecret("S3_SECRET_ACCESS_KEY")
	readSecret("AVATAR_AI_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("auth.api_key", "API_KEY")
	_ = viper.BindEnv("ratelimit.process_per_hour", "RATELIMIT_PROCESS_PER_HOUR")
	_ = viper.BindEnv("ratelimit.uploads_per_hour", "RATELIMIT_UPLOADS_PER_HOUR")
	_ = viper.BindEnv("s3.endpoint", "S3_ENDPOINT")
	_ = viper.BindEnv("s3.region", "S3_REGION")
	_ = viper.BindEnv("s3.access_key_id", "S3_ACCESS_KEY_ID")
	_ = viper.BindEnv("s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("s3.upload_bucket", "S3_UPLOAD_BUCKET")
	_ = viper.BindEnv("s3.generated_bucket", "S3_GENERATED_BUCKET")
	_ = viper.BindEnv("avatar_ai.base_url", "AVATAR_AI_BASE_URL")
	_ = viper.BindEnv("avatar_ai.api_key", "AVATAR_AI_API_KEY")
	_ = viper.BindEnv("avatar_ai.timeout", "AVATAR_AI_TIMEOUT")
	_ = viper.BindEnv("pipeline.stage_max_attempts", "PIPELINE_STAGE_MAX_ATTEMPTS")
	_ = viper.BindEnv("pipeline.stage_base_delay_ms", "PIPELINE_STAGE_BASE_DELAY_MS")
	_ = viper.BindEnv("pipeline.deadline_minutes", "PIPELINE_DEADLINE_MINUTES")
	_ = viper.BindEnv("queue.concurrency", "QUEUE_CONCURRENCY")
	_ = viper.BindEnv("queue.max_retry", "QUEUE_MAX_RETRY")
	_ = viper.BindEnv("queue.retention_hours", "QUEUE_RETENTION_HOURS")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.process_per_hour", 30)
	viper.SetDefault("ratelimit.uploads_per_hour", 50)
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.upload_bucket", "petavatar-uploads")
	viper.SetDefault("s3.generated_bucket", "petavatar-generated")
	viper.SetDefault("avatar_ai.timeout", 120)
	viper.SetDefault("pipeline.stage_max_attempts", 3)
	viper.SetDefault("pipeline.stage_base_delay_ms", 1000)
	viper.SetDefault("pipeline.deadline_minutes", 10)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.max_retry", 3)
	viper.SetDefault("queue.retention_hours", 24)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			APIKey: viper.GetString("auth.api_key"),
		},
		RateLimit: RateLimitConfig{
			ProcessPerHour: viper.GetInt("ratelimit.process_per_hour"),
			UploadsPerHour: viper.GetInt("ratelimit.uploads_per_hour"),
		},
		S3: S3Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			AccessKeyID:     viper.GetString("s3.access_key_id"),
			SecretAccessKey: viper.GetString("s3.secret_access_key"),
			UploadBucket:    viper.GetString("s3.upload_bucket"),
			GeneratedBucket: viper.GetString("s3.generated_bucket"),
		},
		AvatarAI: AvatarAIConfig{
			BaseURL: viper.GetString("avatar_ai.base_url"),
			APIKey:  viper.GetString("avatar_ai.api_key"),
			Timeout: viper.GetInt("avatar_ai.timeout"),
		},
		Pipeline: PipelineConfig{
			StageMaxAttempts: viper.GetInt("pipeline.stage_max_attempts"),
			StageBaseDelay:   time.Duration(viper.GetInt("pipeline.stage_base_delay_ms")) * time.Millisecond,
			Deadline:         time.Duration(viper.GetInt("pipeline.deadline_minutes")) * time.Minute,
		},
		Queue: QueueConfig{
			Concurrency: viper.GetInt("queue.concurrency"),
			MaxRetry:    viper.GetInt("queue.max_retry"),
			Retention:   time.Duration(viper.GetInt("queue.retention_hours")) * time.Hour,
		},
	}

	return cfg, nil
}
