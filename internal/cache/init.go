package cache

import (
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/types"
)

// NewCache builds the configured cache driver. A disabled cache is an
// in-memory cache that stores nothing, so callers never check for nil.
func NewCache(cfg *config.Configuration, log *logger.Logger) (Cache, error) {
	log.Infow("initializing cache system",
		"enabled", cfg.Cache.Enabled,
		"driver", cfg.Cache.Driver)

	if cfg.Cache.Enabled && cfg.Cache.Driver == types.CacheDriverRedis {
		return NewRedisCache(cfg.Cache, log)
	}
	return NewInMemoryCache(cfg.Cache), nil
}
