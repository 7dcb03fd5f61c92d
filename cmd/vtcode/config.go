package main

import (
	"os"
	"path/filepath"

	"github.com/vtcode/vtcode/internal/config"
)

// defaultConfigPath resolves the config file path used when --config is not
// given: $VTCODE_CONFIG, then ~/.vtcode/config.yaml.
func defaultConfigPath() string {
	if p := os.Getenv("VTCODE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".vtcode", "config.yaml")
}

// loadConfig loads the config at path, falling back to built-in defaults
// when the file does not exist so the CLI stays usable without prior setup.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Defaults(), nil
	}
	return config.Load(path)
}
