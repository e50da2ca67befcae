package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/ledger"
	"github.com/Emran025/supermarket-system-sub001/internal/observability"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/cache"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

// Runtime holds the live connections behind an Engine.
type Runtime struct {
	Pool   *pgxpool.Pool
	Runner *db.TxRunner
	Redis  *redis.Client
	Engine *ledger.Engine
}

// Bootstrap connects to PostgreSQL, optionally Redis, and assembles the
// ledger engine. With the memory cache backend Redis is only used to fan out
// chart of accounts invalidations, so an unreachable Redis is logged and
// tolerated; with the redis backend it is required.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.LedgerMetrics) (*Runtime, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{
		MaxConns:        cfg.PGMaxConns,
		MinConns:        cfg.PGMinConns,
		MaxConnIdleTime: cfg.PGConnIdleTime,
		ApplicationName: "ledger-" + cfg.AppEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt := &Runtime{Pool: pool, Runner: db.NewTxRunner(pool, cfg.LedgerLockTimeout)}

	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		if cfg.AccountCacheBackend == CacheBackendRedis {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Warn("redis unavailable, account cache invalidation stays local", slog.Any("error", err))
	}
	rt.Redis = client

	var (
		accountCache accounts.Cache
		notify       []accounts.Cache
	)
	switch {
	case cfg.AccountCacheBackend == CacheBackendRedis:
		accountCache = accounts.NewRedisCache(client, cfg.AccountCacheTTL)
	case client != nil:
		local := accounts.NewMemoryCache()
		if err := accounts.ListenForInvalidation(ctx, client, local); err != nil {
			logger.Warn("subscribe account invalidation", slog.Any("error", err))
		}
		accountCache = local
		notify = append(notify, accounts.NewRedisCache(client, cfg.AccountCacheTTL))
	default:
		accountCache = accounts.NewMemoryCache()
	}

	rt.Engine = ledger.Assemble(ledger.PostgresStores(rt.Runner), ledger.Options{
		Logger:              logger,
		Metrics:             metrics,
		AccountCache:        accountCache,
		NotifyCaches:        notify,
		VoucherDocumentType: cfg.VoucherDocumentType,
		Retry: shared.RetryPolicy{
			Attempts: cfg.LedgerRetryAttempts,
			Backoff:  cfg.LedgerRetryBackoff,
		},
	})
	return rt, nil
}

// Close releases every connection.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	if r.Pool != nil {
		r.Pool.Close()
	}
}
