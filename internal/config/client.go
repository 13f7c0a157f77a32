package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	APIURL         string `mapstructure:"NEKOZUKAN_API_URL"`
	StoragePath    string `mapstructure:"NEKOZUKAN_STORAGE_PATH"`
	TimeoutSeconds int    `mapstructure:"NEKOZUKAN_TIMEOUT_SECONDS"`
	PageSize       int    `mapstructure:"NEKOZUKAN_PAGE_SIZE"`
}

// Timeout returns the per-request and per-mutation deadline.
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultStoragePath is where the client keeps its local state when nothing
// else is configured.
func DefaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nekozukan", "storage.json")
}

// LoadClientConfig reads client settings from the environment and an optional
// nekozukan.yml in the working directory or the user config dir.
func LoadClientConfig() (*ClientConfig, error) {
	v := viper.New()
	v.SetConfigName("nekozukan")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "nekozukan"))
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read client config: %w", err)
		}
	}

	v.SetDefault("NEKOZUKAN_API_URL", "http://localhost:8375")
	v.SetDefault("NEKOZUKAN_STORAGE_PATH", DefaultStoragePath())
	v.SetDefault("NEKOZUKAN_TIMEOUT_SECONDS", 10)
	v.SetDefault("NEKOZUKAN_PAGE_SIZE", 12)

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode client config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the client settings.
func (c *ClientConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("NEKOZUKAN_API_URL is required")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("NEKOZUKAN_API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.TimeoutSeconds <= 0 {
		return errors.New("NEKOZUKAN_TIMEOUT_SECONDS must be positive")
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		return errors.New("NEKOZUKAN_PAGE_SIZE must be between 1 and 100")
	}
	return nil
}
