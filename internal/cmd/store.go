package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/config"
	"github.com/namelens/domainsearch/internal/core/engine"
	"github.com/namelens/domainsearch/internal/core/store"
	"github.com/namelens/domainsearch/internal/observability"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return openStoreWith(ctx, cfg.Store)
}

func openStoreWith(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// openCacheStore opens the store for caching. Searches still work without
// one, so failures are logged and nil is returned.
func openCacheStore(ctx context.Context, cfg config.StoreConfig) *store.Store {
	db, err := openStoreWith(ctx, cfg)
	if err != nil {
		observability.Logger().Warn("Cache store unavailable, using in-memory caches",
			zap.String("driver", cfg.Driver),
			zap.Error(err))
		return nil
	}
	return db
}

func buildRateLimiter(cfg *config.Config, db *store.Store) *engine.RateLimiter {
	var rateStore engine.RateLimitStore = engine.NewMemoryRateStore()
	if db != nil {
		rateStore = db
	}
	limiter := &engine.RateLimiter{Store: rateStore}
	limiter.ApplyOverrides(cfg.RateLimits)
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)
	return limiter
}
