package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the client configuration loaded from files and environment variables.
type Config struct {
	AppName               string        `mapstructure:"app_name"`
	LogLevel              string        `mapstructure:"log_level"`
	VerifierBaseURL       string        `mapstructure:"verifier_base_url"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	PublishersFile        string        `mapstructure:"publishers_file"`

	RouteCache               string        `mapstructure:"route_cache"`
	BBoltPath                string        `mapstructure:"bbolt_path"`
	RouteCacheTTLSeconds     int64         `mapstructure:"route_cache_ttl_seconds"`
	RouteCacheCleanupSeconds int64         `mapstructure:"route_cache_cleanup_seconds"`
	RouteCacheTTL            time.Duration `mapstructure:"-"`
	RouteCacheCleanup        time.Duration `mapstructure:"-"`
}

// Load reads configuration from configs/.env, the environment and the defaults.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

// load applies defaults and validation to v. Split out so tests can feed values directly.
func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "vlei-verifier-client")
	v.SetDefault("log_level", "info")
	v.SetDefault("verifier_base_url", "http://localhost:7676")
	v.SetDefault("request_timeout_seconds", 0)
	v.SetDefault("publishers_file", "")
	v.SetDefault("route_cache", "none")
	v.SetDefault("bbolt_path", "./data/routes.db")
	v.SetDefault("route_cache_ttl_seconds", 300)
	v.SetDefault("route_cache_cleanup_seconds", 600)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.VerifierBaseURL = strings.TrimSpace(cfg.VerifierBaseURL)
	if cfg.VerifierBaseURL == "" {
		return nil, fmt.Errorf("verifier_base_url must not be empty")
	}
	cfg.RouteCache = strings.ToLower(strings.TrimSpace(cfg.RouteCache))

	if cfg.RequestTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.RouteCacheTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid route_cache_ttl_seconds (must be positive seconds)")
	}
	if cfg.RouteCacheCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid route_cache_cleanup_seconds (must be positive seconds)")
	}
	cfg.RouteCacheTTL = time.Duration(cfg.RouteCacheTTLSeconds) * time.Second
	cfg.RouteCacheCleanup = time.Duration(cfg.RouteCacheCleanupSeconds) * time.Second

	return &cfg, nil
}
