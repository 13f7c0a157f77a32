// Package bootstrap wires the runtime dependencies shared by the server and
// the maintenance commands.
package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"nekozukan/internal/cache"
	"nekozukan/internal/config"
	"nekozukan/internal/database"
	"nekozukan/internal/middleware"
	"nekozukan/internal/seed"
	"nekozukan/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo bool
}

// InitRuntime connects to DB and Redis, prepares the object store directory
// and optionally seeds the demo posts.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureStorageDir(cfg); err != nil {
		return nil, nil, err
	}

	if opts.SeedDemo || cfg.SeedDemo {
		if err := seed.Demo(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo posts: %w", err)
		}
	}

	if strings.TrimSpace(cfg.AdminToken) == "" {
		middleware.Logger.Warn("ADMIN_TOKEN is empty; post deletion is disabled")
	}

	return db, r, nil
}

func ensureStorageDir(cfg *config.Config) error {
	dir := cfg.StorageDir
	if dir == "" {
		dir = service.DefaultStorageDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return nil
}
