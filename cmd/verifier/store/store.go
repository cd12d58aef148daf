// Package store selects the snapshot storage backend for the verifier.
package store

import (
	"log/slog"
	"os"

	"github.com/driftcast/driftcast/cmd/verifier/config"
	"github.com/driftcast/driftcast/pkg/storage"
)

// New creates the storage backend named by the configuration.
// A Redis connection failure is fatal: running with a silently
// degraded backend would hide snapshots from other instances.
func New(cfg *config.Config, logger *slog.Logger) storage.Store {
	switch cfg.Storage {
	case "redis":
		s, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		logger.Info("using redis storage", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.RedisTTL)
		return s
	default:
		logger.Info("using in-memory storage")
		return storage.NewMemoryStore()
	}
}
