package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Token        string  `env:"TOKEN"`
	AllowedUsers []int64 `env:"ALLOWED_USERS"`
	DBPath       string  `env:"DB_PATH"                envDefault:"db.sqlite"`

	OpenRouterAPIKey  string        `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string        `env:"OPENROUTER_BASE_URL"    envDefault:"https://openrouter.ai/api/v1"`
	Model             string        `env:"MODEL"                  envDefault:"mistralai/mistral-small-3.2-24b-instruct:free"`
	MaxTokens         int64         `env:"MAX_TOKENS"             envDefault:"1000"`
	AppReferer        string        `env:"APP_REFERER"            envDefault:"https://github.com/clipgenie/clipgenie"`
	AppTitle          string        `env:"APP_TITLE"              envDefault:"Web Summarizer Extension"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"        envDefault:"60s"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT"          envDefault:"20s"`
	MaxContentLength  int           `env:"MAX_CONTENT_LENGTH"     envDefault:"50000"`
	LongContentChars  int           `env:"LONG_CONTENT_THRESHOLD" envDefault:"10000"`
	RulesPath         string        `env:"RULES_PATH"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	// APIToken unlocks the configured OpenRouter key and the saved clips on
	// the HTTP API. Empty disables both.
	APIToken string `env:"API_TOKEN"`
	// AllowedOrigins holds exact origins or scheme prefixes ending in "://".
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"chrome-extension://,moz-extension://"`

	ClipRetention time.Duration `env:"CLIP_RETENTION" envDefault:"2160h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.OpenRouterAPIKey = strings.TrimSpace(cfg.OpenRouterAPIKey)
	cfg.APIToken = strings.TrimSpace(cfg.APIToken)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TOKENS must be positive, got %d", c.MaxTokens))
	}
	if c.MaxContentLength <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength))
	}
	if c.LongContentChars <= 0 {
		errs = append(errs, fmt.Errorf("LONG_CONTENT_THRESHOLD must be positive, got %d", c.LongContentChars))
	}
	if c.ClipRetention < 0 {
		errs = append(errs, fmt.Errorf("CLIP_RETENTION must not be negative, got %s", c.ClipRetention))
	}
	if strings.TrimSpace(c.OpenRouterBaseURL) == "" {
		errs = append(errs, errors.New("OPENROUTER_BASE_URL is empty"))
	}

	return errors.Join(errs...)
}
