// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Supported STATE_BACKEND values.
const (
	BackendNone     = "none"
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"
)

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// Config holds all application configuration. The env tag names the
// variable each field is read from and is used in validation errors.
type Config struct {
	Port                string        `env:"PORT" validate:"required"`
	AllowedOrigins      []string      `env:"ALLOWED_ORIGINS"`
	StateBackend        string        `env:"STATE_BACKEND" validate:"oneof=none dynamodb sqlite"`
	StateTable          string        `env:"STATE_TABLE" validate:"required_if=StateBackend dynamodb"`
	DBPath              string        `env:"DB_PATH" validate:"required_if=StateBackend sqlite"`
	ParamPrefix         string        `env:"PARAM_PREFIX"`
	OpenAI              OpenAIConfig  `env:"-"`
	MaxMessageLength    int           `env:"MAX_MESSAGE_LENGTH" validate:"gt=0"`
	CollaboratorTimeout time.Duration `env:"COLLABORATOR_TIMEOUT" validate:"gt=0"`
	RateLimit           float64       `env:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateBurst           int           `env:"RATE_LIMIT_BURST" validate:"gte=1"`
}

// OpenAIConfig controls the optional model collaborators. With neither an
// API key nor a parameter prefix the service runs on built-in rules only.
type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	Model   string `env:"OPENAI_MODEL"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("env")
		if name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", devOrigins),
		StateBackend:   strings.ToLower(strings.TrimSpace(getEnv("STATE_BACKEND", BackendNone))),
		StateTable:     getEnv("STATE_TABLE", ""),
		DBPath:         getEnv("DB_PATH", "./data/intake.db"),
		ParamPrefix:    getEnv("PARAM_PREFIX", ""),
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		MaxMessageLength:    getEnvInt("MAX_MESSAGE_LENGTH", 1000),
		CollaboratorTimeout: getEnvDuration("COLLABORATOR_TIMEOUT", 8*time.Second),
		RateLimit:           getEnvFloat("RATE_LIMIT_RPS", 0),
		RateBurst:           getEnvInt("RATE_LIMIT_BURST", 20),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set and
// consistent with each other.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return err
		}
		return describe(fieldErrs[0])
	}
	if c.ModelEnabled() && c.OpenAI.Model == "" {
		return fmt.Errorf("OPENAI_MODEL cannot be empty")
	}
	return nil
}

func describe(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s cannot be empty", fe.Field())
	case "required_if":
		return fmt.Errorf("%s is required when STATE_BACKEND=%s", fe.Field(), strings.Fields(fe.Param())[1])
	case "oneof":
		return fmt.Errorf("%s must be one of %s (got %q)", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be > %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Errorf("%s must be >= %s", fe.Field(), fe.Param())
	case "url":
		return fmt.Errorf("%s must be a URL", fe.Field())
	default:
		return fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// ModelEnabled reports whether an API key source is configured.
func (c *Config) ModelEnabled() bool {
	return c.OpenAI.APIKey != "" || c.ParamPrefix != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
