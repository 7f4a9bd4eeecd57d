package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/barcodekeeper/internal/flagx"
	"github.com/dmitrijs2005/barcodekeeper/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "5m" as well as
// integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	MaxOpenConns     int            `json:"max_open_conns"`
	MasterKey        string         `json:"master_key"`
	LogLevel         string         `json:"log_level"`
	CacheType        string         `json:"cache_type"`
	CacheTTL         timex.Duration `json:"cache_ttl"`
	RedisAddr        string         `json:"redis_addr"`
	RedisPassword    string         `json:"redis_password"`
	RedisDB          int            `json:"redis_db"`
	ShutdownTimeout  timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file named by -c/-config. Keys missing from the
// file keep their current value. Panics on unreadable or invalid files.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MasterKey, c.MasterKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.CacheType, c.CacheType)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)

	if c.MaxOpenConns != 0 {
		config.MaxOpenConns = c.MaxOpenConns
	}
	if c.RedisDB != 0 {
		config.RedisDB = c.RedisDB
	}
	if c.CacheTTL.Duration != 0 {
		config.CacheTTL = c.CacheTTL.Duration
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
