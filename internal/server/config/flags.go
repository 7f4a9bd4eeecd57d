package config

import (
	"flag"

	"github.com/dmitrijs2005/barcodekeeper/internal/flagx"
)

// parseFlags overlays settings from command-line flags:
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-g string     gRPC health bind address
//	-d string     PostgreSQL DSN
//	-k string     master key ensured at startup
//	-l string     log level (debug, info, warn, error)
//	-m int        database pool size
//	-cache string cache backend (memory, redis)
//	-t duration   barcode lookup cache TTL
//	-r string     Redis address
//	-s duration   graceful shutdown timeout
//
// Arguments for other flag sets (-c, -config) are filtered out first.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-k", "-l", "-m", "-cache", "-t", "-r", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MasterKey, "k", config.MasterKey, "master key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.IntVar(&config.MaxOpenConns, "m", config.MaxOpenConns, "max open database connections")
	fs.StringVar(&config.CacheType, "cache", config.CacheType, "cache backend: memory or redis")
	fs.DurationVar(&config.CacheTTL, "t", config.CacheTTL, "barcode cache TTL")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.DurationVar(&config.ShutdownTimeout, "s", config.ShutdownTimeout, "shutdown timeout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
