package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:               "8375",
		Env:                "development",
		DBDriver:           "sqlite",
		DBPath:             "test.db",
		StorageDir:         "/tmp/storage",
		StorageMaxUploadMB: 10,
		PublicBaseURL:      "http://localhost:8375",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(_ *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"sqlite without path", func(c *Config) { c.DBPath = "" }, true},
		{"zero upload limit", func(c *Config) { c.StorageMaxUploadMB = 0 }, true},
		{"production on sqlite", func(c *Config) { c.Env = "production" }, true},
		{"production with default password", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "password"
			c.DBSSLMode = "require"
		}, true},
		{"production with SSL disabled", func(c *Config) {
			c.Env = "prod"
			c.DBDriver = "postgres"
			c.DBPassword = "s3cure-enough"
			c.DBSSLMode = "disable"
		}, true},
		{"production ready", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "s3cure-enough"
			c.DBSSLMode = "verify-full"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLite ")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("PUBLIC_BASE_URL", "http://cats.example/")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "http://cats.example", c.PublicBaseURL)
	assert.Equal(t, 10, c.StorageMaxUploadMB)
}

func TestLoadClientConfig_Defaults(t *testing.T) {
	t.Setenv("NEKOZUKAN_API_URL", "http://api.example:9000/")
	t.Setenv("NEKOZUKAN_STORAGE_PATH", "/tmp/nekozukan-test/storage.json")

	c, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://api.example:9000", c.APIURL)
	assert.Equal(t, "/tmp/nekozukan-test/storage.json", c.StoragePath)
	assert.Equal(t, 10, c.TimeoutSeconds)
	assert.Equal(t, 12, c.PageSize)
}

func TestClientConfig_Validate(t *testing.T) {
	c := &ClientConfig{APIURL: "ftp://nope", TimeoutSeconds: 5, PageSize: 12}
	assert.Error(t, c.Validate())

	c.APIURL = "https://cats.example"
	assert.NoError(t, c.Validate())

	c.PageSize = 0
	assert.Error(t, c.Validate())
}
