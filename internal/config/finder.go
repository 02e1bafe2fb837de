package config

import (
	"os"
	"path/filepath"
)

// configExtensions are tried in order for both global and local config
var configExtensions = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds local config file by walking up directories
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range configExtensions {
			path := filepath.Join(dir, ".keg."+ext)

			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// GlobalConfigDir is $KEG_CONFIG_HOME, or the user config dir joined with "keg"
func GlobalConfigDir() string {
	if dir := os.Getenv("KEG_CONFIG_HOME"); dir != "" {
		return dir
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "keg")
	}

	return ""
}
