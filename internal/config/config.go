package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the NetHub processes.
// The API server, the worker and nethubctl read the same variables.
type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Queue  QueueConfig
	Worker WorkerConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	AllowedOrigins  []string
	RateLimitPerMin int
	APIKeyHash      string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

type QueueConfig struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	MaxJobDuration int
}

type WorkerConfig struct {
	Concurrency     int
	IdleWait        time.Duration
	TimeUnit        time.Duration
	FinalizeTimeout time.Duration
	MetricsPort     int
}

type LogConfig struct {
	Level  string
	Format string
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("NETHUB_PORT", 8080),
			Env:             envString("NETHUB_ENV", "development"),
			AllowedOrigins:  envList("NETHUB_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitPerMin: envInt("NETHUB_RATE_LIMIT_PER_MIN", 60),
			APIKeyHash:      os.Getenv("NETHUB_API_KEY_HASH"),
		},
		Redis: RedisFromEnv(),
		Queue: QueueConfig{
			MaxRetries:     envInt("QUEUE_MAX_RETRIES", 3),
			RetryBackoff:   envDuration("QUEUE_RETRY_BACKOFF", 200*time.Millisecond),
			MaxJobDuration: envInt("QUEUE_MAX_JOB_DURATION", 3600),
		},
		Worker: WorkerConfig{
			Concurrency:     envInt("WORKER_CONCURRENCY", 1),
			IdleWait:        envDuration("WORKER_IDLE_WAIT", 5*time.Second),
			TimeUnit:        envDuration("WORKER_TIME_UNIT", time.Second),
			FinalizeTimeout: envDuration("WORKER_FINALIZE_TIMEOUT", 5*time.Second),
			MetricsPort:     envInt("WORKER_METRICS_PORT", 9091),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envString("LOG_LEVEL", "info")),
			Format: strings.ToLower(envString("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RedisFromEnv reads only the Redis settings. It does not validate the URL,
// so callers that take the URL from elsewhere (a CLI flag) can still use it.
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		PoolSize:     envInt("REDIS_POOL_SIZE", 10),
	}
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}
	if c.Redis.PoolSize < 1 {
		return fmt.Errorf("REDIS_POOL_SIZE must be at least 1, got %d", c.Redis.PoolSize)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("NETHUB_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("NETHUB_RATE_LIMIT_PER_MIN must not be negative, got %d", c.Server.RateLimitPerMin)
	}

	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("QUEUE_MAX_RETRIES must not be negative, got %d", c.Queue.MaxRetries)
	}
	if c.Queue.RetryBackoff <= 0 {
		return fmt.Errorf("QUEUE_RETRY_BACKOFF must be positive, got %s", c.Queue.RetryBackoff)
	}
	if c.Queue.MaxJobDuration < 0 {
		return fmt.Errorf("QUEUE_MAX_JOB_DURATION must not be negative, got %d", c.Queue.MaxJobDuration)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.IdleWait <= 0 {
		return fmt.Errorf("WORKER_IDLE_WAIT must be positive, got %s", c.Worker.IdleWait)
	}
	if c.Worker.TimeUnit <= 0 {
		return fmt.Errorf("WORKER_TIME_UNIT must be positive, got %s", c.Worker.TimeUnit)
	}
	if c.Worker.FinalizeTimeout <= 0 {
		return fmt.Errorf("WORKER_FINALIZE_TIMEOUT must be positive, got %s", c.Worker.FinalizeTimeout)
	}
	// 0 disables the metrics listener.
	if c.Worker.MetricsPort < 0 || c.Worker.MetricsPort > 65535 {
		return fmt.Errorf("WORKER_METRICS_PORT must be between 0 and 65535, got %d", c.Worker.MetricsPort)
	}

	if !validLevels[c.Log.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
