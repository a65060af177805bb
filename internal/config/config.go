package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/darkodi/sitebuilder/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Log        logger.Config
	Store      StoreConfig
	Blob       BlobConfig
	LLM        LLMConfig
	RateLimit  RateLimitConfig
	Site       SiteConfig
	Screenshot ScreenshotConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Environment    string `validate:"oneof=development production testing"`
	PublicOrigin   string `validate:"omitempty,url"`
	AllowedOrigins []string
	StaticDir      string
}

// StoreConfig selects and configures the expiring key-value backend
type StoreConfig struct {
	Driver        string `validate:"oneof=redis sqlite postgres memory"`
	RedisAddr     string `validate:"required_if=Driver redis"`
	RedisPassword string
	RedisDB       int    `validate:"min=0"`
	Path          string `validate:"required_if=Driver sqlite"`
	DatabaseURL   string `validate:"required_if=Driver postgres"`
	SweepSchedule string
}

// BlobConfig selects and configures the screenshot blob backend
type BlobConfig struct {
	Driver          string `validate:"oneof=s3 sqlite postgres memory none"`
	Bucket          string `validate:"required_if=Driver s3"`
	Region          string
	Endpoint        string `validate:"omitempty,url"`
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// LLMConfig holds generation provider settings
type LLMConfig struct {
	Provider            string `validate:"oneof=openai anthropic gemini"`
	APIKey              string
	BaseURL             string `validate:"omitempty,url"`
	BuildModel          string `validate:"required"`
	SurpriseModel       string `validate:"required"`
	BuildMaxTokens      int    `validate:"min=1"`
	SurpriseMaxTokens   int    `validate:"min=1"`
	SurpriseTemperature float64
	Timeout             time.Duration
}

// RateLimitConfig holds fixed-window limiter settings
type RateLimitConfig struct {
	Enabled        bool
	MaxRequests    int           `validate:"min=1"`
	Window         time.Duration `validate:"min=1s"`
	KeyPrefix      string
	ClientIPHeader string
}

// SiteConfig holds retention settings for generated sites
type SiteConfig struct {
	TTL                time.Duration `validate:"min=1m"`
	PromptTTLFactor    int           `validate:"min=1"`
	GalleryMax         int           `validate:"min=1"`
	GalleryVerifyLimit int           `validate:"min=1"`
}

// ScreenshotConfig holds render API settings
type ScreenshotConfig struct {
	AccountID   string
	APIToken    string
	APIBase     string `validate:"url"`
	Delay       time.Duration
	MaxAttempts int           `validate:"min=1"`
	Backoff     time.Duration `validate:"min=0"`
}

// MetricsConfig holds prometheus exposition settings
type MetricsConfig struct {
	Enabled bool
	Path    string `validate:"startswith=/"`
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntEnv("PORT", 8080),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 180*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		App: AppConfig{
			Environment:  getEnv("ENVIRONMENT", "development"),
			PublicOrigin: strings.TrimRight(getEnv("PUBLIC_ORIGIN", ""), "/"),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{
				"https://adamcbloom.com",
				"https://www.adamcbloom.com",
			}),
			StaticDir: getEnv("STATIC_DIR", ""),
		},
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Store: StoreConfig{
			Driver:        getEnv("STORE_DRIVER", "redis"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			Path:          getEnv("DB_PATH", "./data/sites.db"),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
			SweepSchedule: getEnv("STORE_SWEEP_SCHEDULE", "@every 5m"),
		},
		Blob: BlobConfig{
			Driver:          getEnv("BLOB_DRIVER", "sqlite"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "auto"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("SCREENSHOT_PREFIX", "screenshots/"),
		},
		LLM: LLMConfig{
			Provider:            getEnv("LLM_PROVIDER", "openai"),
			APIKey:              getEnv("LLM_API_KEY", os.Getenv("CEREBRAS_API_KEY")),
			BaseURL:             getEnv("LLM_BASE_URL", ""),
			BuildModel:          getEnv("BUILD_MODEL", "zai-glm-4.7"),
			SurpriseModel:       getEnv("SURPRISE_MODEL", "gpt-oss-120b"),
			BuildMaxTokens:      getIntEnv("BUILD_MAX_TOKENS", 16000),
			SurpriseMaxTokens:   getIntEnv("SURPRISE_MAX_TOKENS", 400),
			SurpriseTemperature: getFloatEnv("SURPRISE_TEMPERATURE", 1.2),
			Timeout:             getDurationEnv("GENERATION_TIMEOUT", 150*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getBoolEnv("RATE_LIMIT_ENABLED", true),
			MaxRequests:    getIntEnv("RATE_LIMIT_MAX", 10),
			Window:         getDurationEnv("RATE_LIMIT_WINDOW", 60*time.Second),
			KeyPrefix:      getEnv("RATE_LIMIT_PREFIX", "ratelimit:"),
			ClientIPHeader: getEnv("CLIENT_IP_HEADER", "CF-Connecting-IP"),
		},
		Site: SiteConfig{
			TTL:                getDurationEnv("SITE_TTL", 30*24*time.Hour),
			PromptTTLFactor:    getIntEnv("PROMPT_TTL_FACTOR", 7),
			GalleryMax:         getIntEnv("GALLERY_MAX", 15),
			GalleryVerifyLimit: getIntEnv("GALLERY_VERIFY_LIMIT", 12),
		},
		Screenshot: ScreenshotConfig{
			AccountID:   getEnv("SCREENSHOT_ACCOUNT_ID", os.Getenv("CF_ACCOUNT_ID")),
			APIToken:    getEnv("SCREENSHOT_API_TOKEN", os.Getenv("CF_API_TOKEN")),
			APIBase:     getEnv("SCREENSHOT_API_BASE", "https://api.cloudflare.com/client/v4"),
			Delay:       getDurationEnv("SCREENSHOT_DELAY", 1500*time.Millisecond),
			MaxAttempts: getIntEnv("SCREENSHOT_MAX_ATTEMPTS", 3),
			Backoff:     getDurationEnv("SCREENSHOT_BACKOFF", time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}
	cfg.Log.Environment = cfg.App.Environment

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return err
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// PromptTTL is how long the original brief outlives its site
func (c *Config) PromptTTL() time.Duration {
	return c.Site.TTL * time.Duration(c.Site.PromptTTLFactor)
}

// ============================================================
// HELPER FUNCTIONS
// ============================================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := cast.ToIntE(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	f, err := cast.ToFloat64E(value)
	if err != nil {
		return defaultValue
	}
	return f
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := cast.ToBoolE(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
