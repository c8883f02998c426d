// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Voice      VoiceConfig      `json:"voice"`
	Twilio     TwilioConfig     `json:"twilio"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver"` // postgres, sqlite
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	SQLitePath      string        `json:"sqlite_path"`
	AutoMigrate     bool          `json:"auto_migrate"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

// Enabled reports whether a backing store is configured at all.
// Without one the voice webhooks answer with the offline message.
func (c DatabaseConfig) Enabled() bool {
	if c.Driver == "sqlite" {
		return c.SQLitePath != ""
	}
	return c.Host != ""
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	AllowedOrigins  []string      `json:"allowed_origins"`
	APIRateLimit    int           `json:"api_rate_limit"` // requests per minute
}

type LoggingConfig struct {
	Level        string `json:"level"`  // debug, info, warn, error
	Format       string `json:"format"` // json, console
	Output       string `json:"output"` // stdout, file, both
	FilePath     string `json:"file_path"`
	MaxSize      int    `json:"max_size"` // MB
	MaxBackups   int    `json:"max_backups"`
	MaxAge       int    `json:"max_age"` // days
	Compress     bool   `json:"compress"`
	EnableCaller bool   `json:"enable_caller"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// VoiceConfig is the explicit configuration of the conversation engine.
// It is injected into the call initiator and the call session controller.
type VoiceConfig struct {
	PublicBaseURL    string        `json:"public_base_url"`
	CallerID         string        `json:"caller_id"`
	RoutingNumber    string        `json:"routing_number"`
	SpeechVoice      string        `json:"speech_voice"`
	SpeechLanguage   string        `json:"speech_language"`
	AffirmWords      []string      `json:"affirm_words"`
	DeclineWords     []string      `json:"decline_words"`
	WebhookTimeout   time.Duration `json:"webhook_timeout"`
	DeliveryGuardTTL time.Duration `json:"delivery_guard_ttl"`

	// MaxObjectionRounds caps unclear answers before the call closes with a follow-up
	MaxObjectionRounds int `json:"max_objection_rounds"`
}

type TwilioConfig struct {
	Provider   string        `json:"provider"` // twilio, mock
	AccountSID string        `json:"account_sid"`
	AuthToken  string        `json:"auth_token"`
	APIBaseURL string        `json:"api_base_url"`
	Timeout    time.Duration `json:"timeout"`
}

type SchedulerConfig struct {
	PendingSweepEnabled  bool          `json:"pending_sweep_enabled"`
	PendingSweepInterval time.Duration `json:"pending_sweep_interval"`
	PendingMaxAge        time.Duration `json:"pending_max_age"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Driver:          getEnvString("DB_DRIVER", "postgres"),
			Host:            getEnvString("DB_HOST", ""),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "admissions"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			SQLitePath:      getEnvString("DB_SQLITE_PATH", ""),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1024*1024), // 1MB
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			APIRateLimit:    getEnvInt("API_RATE_LIMIT", 600),
		},
		Logging: LoggingConfig{
			Level:        getEnvString("LOG_LEVEL", "info"),
			Format:       getEnvString("LOG_FORMAT", "json"),
			Output:       getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:     getEnvString("LOG_FILE_PATH", "/var/log/admissions-agent/app.log"),
			MaxSize:      getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:       getEnvInt("LOG_MAX_AGE", 30),
			Compress:     getEnvBool("LOG_COMPRESS", true),
			EnableCaller: getEnvBool("LOG_ENABLE_CALLER", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", false),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "admissions:"),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 30*time.Second),
		},
		Voice: VoiceConfig{
			PublicBaseURL:      strings.TrimRight(getEnvString("PUBLIC_URL", ""), "/"),
			CallerID:           getEnvString("TWILIO_CALLER_ID", ""),
			RoutingNumber:      getEnvString("ROUTING_PHONE_NUMBER", ""),
			SpeechVoice:        getEnvString("VOICE_SPEECH_VOICE", "Polly.Aditi"),
			SpeechLanguage:     getEnvString("VOICE_SPEECH_LANGUAGE", "en-IN"),
			AffirmWords:        getEnvStringSlice("VOICE_AFFIRM_WORDS", []string{"yes", "sure", "ok", "schedule", "book"}),
			DeclineWords:       getEnvStringSlice("VOICE_DECLINE_WORDS", []string{"not interested", "stop", "nope", "no"}),
			WebhookTimeout:     getEnvDuration("VOICE_WEBHOOK_TIMEOUT", 10*time.Second),
			DeliveryGuardTTL:   getEnvDuration("VOICE_DELIVERY_GUARD_TTL", 24*time.Hour),
			MaxObjectionRounds: getEnvInt("VOICE_MAX_OBJECTION_ROUNDS", 2),
		},
		Twilio: TwilioConfig{
			Provider:   getEnvString("TELEPHONY_PROVIDER", "twilio"),
			AccountSID: getEnvString("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnvString("TWILIO_AUTH_TOKEN", ""),
			APIBaseURL: getEnvString("TWILIO_API_BASE_URL", "https://api.twilio.com/2010-04-01"),
			Timeout:    getEnvDuration("TWILIO_TIMEOUT", 10*time.Second),
		},
		Scheduler: SchedulerConfig{
			PendingSweepEnabled:  getEnvBool("SCHEDULER_PENDING_SWEEP_ENABLED", true),
			PendingSweepInterval: getEnvDuration("SCHEDULER_PENDING_SWEEP_INTERVAL", 15*time.Minute),
			PendingMaxAge:        getEnvDuration("SCHEDULER_PENDING_MAX_AGE", 6*time.Hour),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from the given file if it exists.
// Variables already present in the environment win.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host != "" {
			if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
				errors = append(errors, "DB_PORT must be between 1 and 65535")
			}
			if cfg.Database.Name == "" {
				errors = append(errors, "DB_NAME is required")
			}
			if cfg.Database.User == "" {
				errors = append(errors, "DB_USER is required")
			}
		}
	case "sqlite":
	default:
		errors = append(errors, "DB_DRIVER must be one of: postgres, sqlite")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate voice configuration. Caller id and base URL are checked at
	// call initiation time so that inbound handling keeps working without them.
	if cfg.Voice.PublicBaseURL != "" && !strings.HasPrefix(cfg.Voice.PublicBaseURL, "http") {
		errors = append(errors, "PUBLIC_URL must start with http:// or https://")
	}
	if len(cfg.Voice.AffirmWords) == 0 {
		errors = append(errors, "VOICE_AFFIRM_WORDS must not be empty")
	}
	if len(cfg.Voice.DeclineWords) == 0 {
		errors = append(errors, "VOICE_DECLINE_WORDS must not be empty")
	}
	if cfg.Voice.MaxObjectionRounds < 1 {
		errors = append(errors, "VOICE_MAX_OBJECTION_ROUNDS must be at least 1")
	}
	if cfg.Voice.WebhookTimeout <= 0 {
		errors = append(errors, "VOICE_WEBHOOK_TIMEOUT must be positive")
	}

	// Validate telephony provider
	switch cfg.Twilio.Provider {
	case "mock":
	case "twilio":
		if cfg.Twilio.AccountSID == "" {
			errors = append(errors, "TWILIO_ACCOUNT_SID is required for twilio provider")
		}
		if cfg.Twilio.AuthToken == "" {
			errors = append(errors, "TWILIO_AUTH_TOKEN is required for twilio provider")
		}
	default:
		errors = append(errors, "TELEPHONY_PROVIDER must be one of: twilio, mock")
	}

	// Validate scheduler configuration
	if cfg.Scheduler.PendingSweepEnabled {
		if cfg.Scheduler.PendingSweepInterval < time.Minute {
			errors = append(errors, "SCHEDULER_PENDING_SWEEP_INTERVAL must be at least 1m")
		}
		if cfg.Scheduler.PendingMaxAge <= 0 {
			errors = append(errors, "SCHEDULER_PENDING_MAX_AGE must be positive")
		}
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !slices.Contains(validLevels, cfg.Logging.Level) {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
