package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	CheckoutBaseURI    string        `mapstructure:"checkout_base_uri"`
	SharedSecret       string        `mapstructure:"shared_secret"`
	UserAgent          string        `mapstructure:"user_agent"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	FollowRedirects    bool          `mapstructure:"follow_redirects"`
	SuccessStatusMin   int           `mapstructure:"success_status_min"`
	SuccessStatusMax   int           `mapstructure:"success_status_max"`
	LocationHeader     string        `mapstructure:"location_header"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "checkout-connector")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("checkout_base_uri", "https://checkout.testdrive.klarna.com/checkout/orders")
	v.SetDefault("shared_secret", "")
	v.SetDefault("user_agent", "checkout-connector-go/1.0")
	v.SetDefault("http_timeout_seconds", 10)
	v.SetDefault("follow_redirects", false)
	v.SetDefault("success_status_min", 200)
	v.SetDefault("success_status_max", 299)
	v.SetDefault("location_header", "Location")
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/orders.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.CheckoutBaseURI = strings.TrimSpace(cfg.CheckoutBaseURI)
	if cfg.CheckoutBaseURI == "" {
		return fmt.Errorf("checkout_base_uri is required")
	}
	if cfg.SharedSecret == "" {
		return fmt.Errorf("shared_secret is required")
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.SuccessStatusMin <= 0 || cfg.SuccessStatusMax < cfg.SuccessStatusMin {
		return fmt.Errorf("invalid success status range %d-%d", cfg.SuccessStatusMin, cfg.SuccessStatusMax)
	}

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
