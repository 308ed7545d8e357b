package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	SocketAddr      string        `mapstructure:"SOCKET_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required,url|uri"`

	// An empty RedisAddr runs without the task queue and with in-process fan-out.
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`
	GoMaxProcs       int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret        string        `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	JWTRefreshSecret string        `mapstructure:"JWT_REFRESH_SECRET" validate:"required,min=16,nefield=JWTSecret"`
	AccessTokenTTL   time.Duration `mapstructure:"ACCESS_TOKEN_TTL" validate:"required"`
	RefreshTokenTTL  time.Duration `mapstructure:"REFRESH_TOKEN_TTL" validate:"required,gtfield=AccessTokenTTL"`
	BcryptCost       int           `mapstructure:"BCRYPT_COST" validate:"gte=10,lte=12"`

	ClientURL   string   `mapstructure:"CLIENT_URL" validate:"required,url"`
	CORSOrigins []string `mapstructure:"-" validate:"dive,url"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET" validate:"required_with=GoogleClientID"`
	GoogleCallbackURL  string `mapstructure:"GOOGLE_CALLBACK_URL" validate:"required_with=GoogleClientID"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL" validate:"required"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=0"`

	DebugErrors bool `mapstructure:"DEBUG_ERRORS"`

	// DeactivateEnded turns on the worker's hourly sweep that clears is_active on ended competitions.
	DeactivateEnded bool `mapstructure:"DEACTIVATE_ENDED_COMPETITIONS"`
}

// IsProduction reports whether cookies and error bodies must use production settings.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// GoogleEnabled reports whether Google OAuth credentials are configured.
func (c *Config) GoogleEnabled() bool { return c.GoogleClientID != "" }

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SOCKET_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"GOMAXPROCS",
	"JWT_SECRET",
	"JWT_REFRESH_SECRET",
	"ACCESS_TOKEN_TTL",
	"REFRESH_TOKEN_TTL",
	"BCRYPT_COST",
	"CLIENT_URL",
	"CORS_ORIGINS",
	"GOOGLE_CLIENT_ID",
	"GOOGLE_CLIENT_SECRET",
	"GOOGLE_CALLBACK_URL",
	"GEMINI_API_KEY",
	"GEMINI_MODEL",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"DEBUG_ERRORS",
	"DEACTIVATE_ENDED_COMPETITIONS",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SOCKET_ADDR", "0.0.0.0:8081")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CLIENT_URL", "https://takra-competition.vercel.app")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("DEBUG_ERRORS", false)
	v.SetDefault("DEACTIVATE_ENDED_COMPETITIONS", false)

	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	durations := map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT":  &c.ShutdownTimeout,
		"ACCESS_TOKEN_TTL":  &c.AccessTokenTTL,
		"REFRESH_TOKEN_TTL": &c.RefreshTokenTTL,
	}
	for key, dst := range durations {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	c.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{c.ClientURL}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
