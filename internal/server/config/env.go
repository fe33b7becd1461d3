package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// parseEnv overlays cfg with variables from the given .env files and from
// environ. Real environment variables win over .env values; unset variables
// leave the current setting untouched. Panics on malformed values.
func parseEnv(cfg *Config, environ []string, files []string) {
	vars := map[string]string{}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		m, err := godotenv.Read(f)
		if err != nil {
			panic(err)
		}
		for k, v := range m {
			vars[k] = v
		}
	}

	for k, v := range env.ToMap(environ) {
		vars[k] = v
	}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		panic(err)
	}
}
