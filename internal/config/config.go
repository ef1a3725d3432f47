// Package config loads server settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulexconde/storecheck/internal/services"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string   `yaml:"addr"`
	DatabaseURL string   `yaml:"database_url"`
	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`
	Media       Media    `yaml:"media"`
	Uploads     Uploads  `yaml:"uploads"`
	Location    Location `yaml:"location"`
	// Evaluated in order; see services.RatingRule.
	RatingRules []services.RatingRule `yaml:"rating_rules"`
}

type Media struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

type Uploads struct {
	Workers    int           `yaml:"workers"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type Location struct {
	Timeout time.Duration `yaml:"timeout"`
	MaxAge  time.Duration `yaml:"max_age"`
}

func Default() Config {
	return Config{
		Addr:        ":8080",
		CORSOrigins: []string{"http://localhost:5173"},
		Media:       Media{Dir: "data/media", BaseURL: "/media"},
		Uploads:     Uploads{Workers: 4, Retries: 3, RetryDelay: 500 * time.Millisecond},
		Location:    Location{Timeout: services.DefaultLocationTimeout, MaxAge: services.DefaultLocationMaxAge},
		RatingRules: services.DefaultRatingRules(),
	}
}

// Load reads path (optional, a missing file keeps the defaults) and then
// applies STORECHECK_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("unmarshal %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	cfg.Addr = SafeEnv("STORECHECK_ADDR", cfg.Addr)
	cfg.DatabaseURL = SafeEnv("STORECHECK_DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = SafeEnv("STORECHECK_JWT_SECRET", cfg.JWTSecret)
	cfg.Media.Dir = SafeEnv("STORECHECK_MEDIA_DIR", cfg.Media.Dir)
	cfg.Media.BaseURL = SafeEnv("STORECHECK_MEDIA_BASE_URL", cfg.Media.BaseURL)

	if v := os.Getenv("STORECHECK_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("STORECHECK_UPLOAD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STORECHECK_UPLOAD_WORKERS: %w", err)
		}
		cfg.Uploads.Workers = n
	}
	if v := os.Getenv("STORECHECK_UPLOAD_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STORECHECK_UPLOAD_RETRIES: %w", err)
		}
		cfg.Uploads.Retries = n
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Uploads.Workers < 1 {
		errs = append(errs, errors.New("uploads.workers must be at least 1"))
	}
	if c.Uploads.Retries < 1 {
		errs = append(errs, errors.New("uploads.retries must be at least 1"))
	}
	if _, err := services.NewClassifier(c.RatingRules); err != nil {
		errs = append(errs, fmt.Errorf("rating_rules: %w", err))
	}
	return errors.Join(errs...)
}

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
