package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/Emran025/supermarket-system-sub001/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, CacheBackendMemory, cfg.AccountCacheBackend)
	require.Equal(t, 5*time.Second, cfg.LedgerLockTimeout)
	require.Equal(t, 3, cfg.LedgerRetryAttempts)
	require.EqualValues(t, 10, cfg.PGMaxConns)
	require.EqualValues(t, 1, cfg.PGMinConns)
	require.Equal(t, "VOU", cfg.VoucherDocumentType)
	require.Equal(t, "0 2 1 * *", cfg.DepreciationCron)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCOUNT_CACHE_BACKEND", "redis")
	t.Setenv("LEDGER_LOCK_TIMEOUT", "750ms")
	t.Setenv("VOUCHER_DOCUMENT_TYPE", "JV")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, CacheBackendRedis, cfg.AccountCacheBackend)
	require.Equal(t, 750*time.Millisecond, cfg.LedgerLockTimeout)
	require.Equal(t, "JV", cfg.VoucherDocumentType)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{PGDSN: "postgres://x", AccountCacheBackend: CacheBackendMemory, LedgerRetryAttempts: 1}
	}
	require.NoError(t, (&Config{PGDSN: "postgres://x", AccountCacheBackend: CacheBackendRedis, LedgerRetryAttempts: 2}).Validate())

	tests := map[string]func(*Config){
		"missing dsn":      func(c *Config) { c.PGDSN = "" },
		"unknown backend":  func(c *Config) { c.AccountCacheBackend = "memcached" },
		"no attempts":      func(c *Config) { c.LedgerRetryAttempts = 0 },
		"negative timeout": func(c *Config) { c.LedgerLockTimeout = -time.Second },
		"negative backoff": func(c *Config) { c.LedgerRetryBackoff = -time.Millisecond },
		"min above max":    func(c *Config) { c.PGMaxConns, c.PGMinConns = 2, 3 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "json"}, &buf)
	logger.DebugContext(context.Background(), "hidden")
	logger.Info("voucher posted", "voucher", "VOU-000001")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "voucher posted", line["msg"])
	require.Equal(t, "ledger", line["service"])
	require.Equal(t, "production", line["env"])
	require.Equal(t, "VOU-000001", line["voucher"])
}
