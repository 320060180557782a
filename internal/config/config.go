package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime settings for the gateway process.
type Config struct {
	// Port the gateway listens on, bound on all interfaces.
	Port int `env:"PORT" envDefault:"4173"`

	// BackendOrigin is the TTS backend the gateway proxies API traffic to.
	BackendOrigin string `env:"BACKEND_ORIGIN" envDefault:"http://api:8000"`

	// StaticDir holds the built application bundle.
	StaticDir string `env:"STATIC_DIR" envDefault:"web/dist"`

	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	MetricsNamespace string        `env:"METRICS_NAMESPACE" envDefault:"voicebox"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("PORT must be in 1..65535, got %d", cfg.Port)
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if strings.TrimSpace(cfg.StaticDir) == "" {
		return Config{}, fmt.Errorf("STATIC_DIR must not be empty")
	}

	origin := strings.TrimRight(strings.TrimSpace(cfg.BackendOrigin), "/")
	u, err := url.Parse(origin)
	if err != nil {
		return Config{}, fmt.Errorf("BACKEND_ORIGIN parse error: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Config{}, fmt.Errorf("BACKEND_ORIGIN must be an http(s) origin, got %q", cfg.BackendOrigin)
	}
	if u.Host == "" {
		return Config{}, fmt.Errorf("BACKEND_ORIGIN missing host: %q", cfg.BackendOrigin)
	}
	cfg.BackendOrigin = origin

	return cfg, nil
}

// ListenAddr is the address handed to the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
