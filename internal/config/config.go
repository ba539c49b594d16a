package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // LoadLocation must work on hosts without zoneinfo

	"github.com/rs/zerolog/log"

	"github.com/gosuda/hookstream/internal/domain"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Ingest IngestConfig
	Stream StreamConfig
	Server ServerConfig
	Redis  RedisConfig
}

// IngestConfig holds log tailing and enrichment settings.
type IngestConfig struct {
	HistoryDir       string
	SessionsFile     string
	Timezone         string
	Location         *time.Location
	BufferCapacity   int
	RolloverInterval time.Duration
	DefaultAgent     string
}

// StreamConfig holds live subscriber settings.
type StreamConfig struct {
	SubscriberQueue int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// RedisConfig holds the optional Redis mirror settings. An empty Addr
// disables the mirror.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
	Channel  string
}

// Enabled reports whether produced events should be mirrored to Redis.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	capacity, err := getEnvInt("HOOKSTREAM_BUFFER_CAPACITY", 1000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rollover, err := getEnvDuration("HOOKSTREAM_ROLLOVER_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	queue, err := getEnvInt("HOOKSTREAM_SUBSCRIBER_QUEUE", 64)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("HOOKSTREAM_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("HOOKSTREAM_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rps, err := getEnvFloat("HOOKSTREAM_RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	burst, err := getEnvInt("HOOKSTREAM_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("HOOKSTREAM_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	historyDir, err := expandHome(getEnv("HOOKSTREAM_HISTORY_DIR", "~/.claude/History/raw-outputs"))
	if err != nil {
		return nil, fmt.Errorf("config.Load: HOOKSTREAM_HISTORY_DIR: %w", err)
	}

	sessionsFile, err := expandHome(getEnv("HOOKSTREAM_SESSIONS_FILE", "~/.claude/agent-sessions.json"))
	if err != nil {
		return nil, fmt.Errorf("config.Load: HOOKSTREAM_SESSIONS_FILE: %w", err)
	}

	cfg := &Config{
		Ingest: IngestConfig{
			HistoryDir:       historyDir,
			SessionsFile:     sessionsFile,
			Timezone:         getEnv("HOOKSTREAM_TIMEZONE", "America/Los_Angeles"),
			BufferCapacity:   capacity,
			RolloverInterval: rollover,
			DefaultAgent:     getEnv("HOOKSTREAM_DEFAULT_AGENT", domain.AgentNameDefault),
		},
		Stream: StreamConfig{
			SubscriberQueue: queue,
		},
		Server: ServerConfig{
			Addr:           getEnv("HOOKSTREAM_SERVER_ADDR", ":4000"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			CORSOrigins:    getEnvList("HOOKSTREAM_CORS_ORIGINS", []string{"*"}),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Redis: RedisConfig{
			Addr:     getEnv("HOOKSTREAM_REDIS_ADDR", ""),
			Password: getEnv("HOOKSTREAM_REDIS_PASSWORD", ""),
			DB:       redisDB,
			Channel:  getEnv("HOOKSTREAM_REDIS_CHANNEL", "hookstream:events"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks value bounds and resolves the timezone.
func (c *Config) validate() error {
	if c.Ingest.HistoryDir == "" {
		return errors.New("HOOKSTREAM_HISTORY_DIR must not be empty")
	}
	loc, err := time.LoadLocation(c.Ingest.Timezone)
	if err != nil {
		return fmt.Errorf("HOOKSTREAM_TIMEZONE %q: %w", c.Ingest.Timezone, err)
	}
	c.Ingest.Location = loc

	if c.Ingest.BufferCapacity < 1 {
		return fmt.Errorf("HOOKSTREAM_BUFFER_CAPACITY must be >= 1, got %d", c.Ingest.BufferCapacity)
	}
	if c.Ingest.RolloverInterval <= 0 {
		return fmt.Errorf("HOOKSTREAM_ROLLOVER_INTERVAL must be positive, got %s", c.Ingest.RolloverInterval)
	}
	if strings.TrimSpace(c.Ingest.DefaultAgent) == "" || c.Ingest.DefaultAgent == "unknown" {
		return fmt.Errorf("HOOKSTREAM_DEFAULT_AGENT must be a real agent name, got %q", c.Ingest.DefaultAgent)
	}
	if c.Stream.SubscriberQueue < 1 {
		return fmt.Errorf("HOOKSTREAM_SUBSCRIBER_QUEUE must be >= 1, got %d", c.Stream.SubscriberQueue)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("HOOKSTREAM_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HOOKSTREAM_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("HOOKSTREAM_RATE_LIMIT_RPS must be positive, got %g", c.Server.RateLimitRPS)
	}
	if c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("HOOKSTREAM_RATE_LIMIT_BURST must be >= 1, got %d", c.Server.RateLimitBurst)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("HOOKSTREAM_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	if c.Redis.Enabled() && c.Redis.Channel == "" {
		return errors.New("HOOKSTREAM_REDIS_CHANNEL must not be empty when HOOKSTREAM_REDIS_ADDR is set")
	}

	if c.Ingest.SessionsFile == "" {
		log.Warn().Msg("HOOKSTREAM_SESSIONS_FILE is empty; every event falls back to the default agent")
	}

	return nil
}

// expandHome replaces a leading "~" with the current user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
