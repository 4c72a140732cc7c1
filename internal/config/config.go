package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	DBDSN    string
	DataDir  string

	// secrets at rest
	EncryptionKey  string
	EncryptionSalt string

	// admin auth; empty password disables auth on /api
	JWTSecret         string
	AdminPassword     string
	AdminPasswordHash string
	TokenTTL          time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// rabbitMQ; empty URL records usage in-process
	RabbitURL   string
	RabbitQueue string

	AutoImportAPIKeys bool
	UsageRecentLimit  int

	// upstream providers
	OpenAIBaseURL   string
	GeminiBaseURL   string
	SeedreamBaseURL string
	KlingBaseURL    string
	VeoBaseURL      string

	KlingPollInterval    time.Duration
	KlingPollMaxAttempts int
	VeoPollInterval      time.Duration
	VeoPollMaxAttempts   int
}

func Load() Config {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	// DSN demo：
	// sqlite:data/genrelay.db
	// app:apppass@tcp(127.0.0.1:3306)/genrelay?charset=utf8mb4&parseTime=true&loc=Local
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "sqlite:" + filepath.Join(dataDir, "genrelay.db")
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	encKey := os.Getenv("ENCRYPTION_KEY")
	if encKey == "" {
		encKey = "default-key"
	}
	encSalt := os.Getenv("ENCRYPTION_SALT")
	if encSalt == "" {
		encSalt = "salt"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	redisDB := envInt("REDIS_DB", 0)

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "usage_records"
	}

	return Config{
		HTTPAddr: httpAddr,
		DBDSN:    dsn,
		DataDir:  dataDir,

		EncryptionKey:  encKey,
		EncryptionSalt: encSalt,

		JWTSecret:         secret,
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		TokenTTL:          envDuration("TOKEN_TTL", 24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,

		AutoImportAPIKeys: strings.EqualFold(os.Getenv("AUTO_IMPORT_API_KEYS"), "true"),
		UsageRecentLimit:  envInt("USAGE_RECENT_LIMIT", 100),

		OpenAIBaseURL:   envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiBaseURL:   envString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		SeedreamBaseURL: envString("SEEDREAM_BASE_URL", "https://ark.ap-southeast.bytepluses.com/api/v3"),
		KlingBaseURL:    envString("KLING_BASE_URL", "https://api.piapi.ai/api/kling"),
		VeoBaseURL:      envString("VEO_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		KlingPollInterval:    envDuration("KLING_POLL_INTERVAL", 5*time.Second),
		KlingPollMaxAttempts: envInt("KLING_POLL_MAX_ATTEMPTS", 60),
		VeoPollInterval:      envDuration("VEO_POLL_INTERVAL", 5*time.Second),
		VeoPollMaxAttempts:   envInt("VEO_POLL_MAX_ATTEMPTS", 120),
	}
}

// AuthEnabled reports whether an admin password is configured.
func (c Config) AuthEnabled() bool {
	return c.AdminPassword != "" || c.AdminPasswordHash != ""
}

// Validate catches values that would make the poller or server misbehave.
func (c Config) Validate() error {
	if c.KlingPollMaxAttempts <= 0 || c.VeoPollMaxAttempts <= 0 {
		return fmt.Errorf("poll max attempts must be positive (kling=%d veo=%d)", c.KlingPollMaxAttempts, c.VeoPollMaxAttempts)
	}
	if c.KlingPollInterval < 0 || c.VeoPollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative")
	}
	if c.AuthEnabled() && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set when admin auth is enabled")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envDuration accepts Go durations ("5s") or bare milliseconds ("5000").
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	return def
}
