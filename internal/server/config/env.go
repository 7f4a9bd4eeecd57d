package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. BARCODEKEEPER_HTTP_ADDR.
const EnvPrefix = "BARCODEKEEPER"

// parseEnv overlays variables from the environment, after loading a .env
// file from the working directory if one exists. Variables already set in
// the environment win over .env. Unset variables leave fields untouched.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		panic(err)
	}
}
