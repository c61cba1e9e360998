package configs

import (
	"flag"
	"os"

	"castrelay/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file from --config, the
// CASTRELAY_CONFIG env var, or a list of conventional locations. An empty
// return means "defaults plus env only", which is a valid way to run.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("CASTRELAY_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/castrelay/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
