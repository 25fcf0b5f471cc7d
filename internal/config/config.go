// Package config reads process configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port      string
	AppDomain string

	StoreBackend string
	SnapshotPath string // file backend
	SnapshotKey  string // redis backend

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL  string
	GormLogLevel string

	RabbitURL     string
	ClickQueue    string
	PublishClicks bool
}

// Load reads the environment, after sourcing .env when present.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		AppDomain: getEnv("APP_DOMAIN", "http://localhost:8080"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
		SnapshotPath: getEnv("SNAPSHOT_PATH", "./data/snapshot.json"),
		SnapshotKey:  getEnv("SNAPSHOT_KEY", "linkmap:snapshot"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		DatabaseURL:  os.Getenv("DB_URL"),
		GormLogLevel: getEnv("GORM_LOG_LEVEL", "warn"),

		RabbitURL:     os.Getenv("RABBITMQ_URL"),
		ClickQueue:    getEnv("CLICK_QUEUE_NAME", "click_events"),
		PublishClicks: getBoolEnv("PUBLISH_CLICKS", false),
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendFile, BackendRedis, BackendPostgres:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("STORE_BACKEND=postgres requires DB_URL")
	}
	if cfg.PublishClicks && cfg.RabbitURL == "" {
		return nil, fmt.Errorf("PUBLISH_CLICKS=true requires RABBITMQ_URL")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBoolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
