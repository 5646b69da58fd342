// Package storage opens the configured client state store.
package storage

import (
	"context"

	"github.com/4406arthur/copilot/config"
	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/storage/memory"
	"github.com/4406arthur/copilot/storage/redis"
	"github.com/4406arthur/copilot/storage/sqlite"
	"github.com/pkg/errors"
)

// Open returns the store named by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (domain.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		s, err := sqlite.NewStore(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := redis.NewStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
}
