package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/jub0bs/cors"
)

// Config is shared by the console gateway and the CLI.
type Config struct {
	Environment    string        `env:"ENVIRONMENT,default=dev"`
	LogLevel       string        `env:"LOG_LEVEL,default=debug"`
	APIBaseURL     string        `env:"API_BASE_URL,required=true"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT,default=10s"`
	Host           string        `env:"HOST,default=0.0.0.0"`
	Port           int           `env:"PORT,default=3000"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS,separator=|"`
	RateLimitRPS   int32         `env:"RATE_LIMIT_RPS,default=50"`
	RateLimitBurst int32         `env:"RATE_LIMIT_BURST,default=20"`
	MaxRequestSize int64         `env:"MAX_REQUEST_SIZE,default=10485760"` // 10MB - document uploads
	SessionFile    string        `env:"SESSION_FILE"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"perf":    true,
	"prod":    true,
	"staging": true,
}

const (
	SessionCookieName   = "conveydesk_session"
	CORSMaxAgeInSeconds = 86400 // 24 hours
	DefaultEnvFile      = ".env"
)

// NewConfig loads the optional env file (variables already set in the environment take precedence) and
// returns the validated configuration.
func NewConfig(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	var cfg Config

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid environment '%s'. Valid environments: dev, test, perf, staging, prod", cfg.Environment)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}

	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %v", cfg.HTTPTimeout)
	}
	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %v", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %v", cfg.IdleTimeout)
	}
	if cfg.MaxRequestSize <= 0 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be positive, got %d", cfg.MaxRequestSize)
	}

	if cfg.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL cannot be empty")
	}
	u, err := url.ParseRequestURI(cfg.APIBaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is not a valid URL: %s", cfg.APIBaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https: %s", cfg.APIBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("API_BASE_URL does not include a host: %s", cfg.APIBaseURL)
	}
	if cfg.Environment == "prod" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use https in production: %s", cfg.APIBaseURL)
	}

	if cfg.Environment == "prod" || cfg.Environment == "staging" {
		if len(cfg.AllowedOrigins) == 0 {
			return fmt.Errorf("ALLOWED_ORIGINS must be set in %v", cfg.Environment)
		}
		if cfg.AllowedOrigins[0] == "*" {
			return fmt.Errorf("ALLOWED_ORIGINS must not be set to '*' in %v", cfg.Environment)
		}
	}

	// default to all origins when not in prod/staging
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return nil
}

// IsProd reports whether cookies must be marked Secure
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// NewCORSMiddleware builds the CORS middleware for the console gateway.
// Credentials (the session cookie) are only allowed when the origins are listed explicitly.
func NewCORSMiddleware(cfg *Config) (*cors.Middleware, error) {
	origins := make([]string, len(cfg.AllowedOrigins))
	for i, origin := range cfg.AllowedOrigins {
		origins[i] = strings.TrimSpace(origin)
	}
	wildcard := len(origins) == 1 && origins[0] == "*"

	corsConfig := cors.Config{
		Origins:      origins,
		Credentialed: !wildcard,
		Methods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodPut,
			http.MethodDelete,
		},
		RequestHeaders: []string{
			"Content-Type",
			"X-Requested-With",
		},
		MaxAgeInSeconds: CORSMaxAgeInSeconds,
	}

	middleware, err := cors.NewMiddleware(corsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create CORS middleware: %w", err)
	}
	return middleware, nil
}
