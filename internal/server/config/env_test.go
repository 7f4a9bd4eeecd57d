package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	t.Setenv("BARCODEKEEPER_HTTP_ADDR", ":7000")
	t.Setenv("BARCODEKEEPER_CACHE_TYPE", "redis")
	t.Setenv("BARCODEKEEPER_CACHE_TTL", "45s")
	t.Setenv("BARCODEKEEPER_REDIS_DB", "3")
	t.Setenv("BARCODEKEEPER_DB_MAX_OPEN_CONNS", "4")

	cfg := defaults()
	parseEnv(cfg)

	want := defaults()
	want.EndpointAddrHTTP = ":7000"
	want.CacheType = CacheRedis
	want.CacheTTL = 45 * time.Second
	want.RedisDB = 3
	want.MaxOpenConns = 4
	assert.Equal(t, want, cfg)
}

func Test_parseEnv_InvalidValuePanics(t *testing.T) {
	t.Setenv("BARCODEKEEPER_CACHE_TTL", "forever")
	require.Panics(t, func() { parseEnv(defaults()) })
}
