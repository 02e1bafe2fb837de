package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForCommand loads configuration for any keg command.
// Precedence: flags > KEG_* env > local .keg.* > global config > defaults.
func (l *Loader) LoadForCommand(cmd *cobra.Command, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(args)
	l.bindEnv()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("prefix", DefaultPrefix())
	viper.SetDefault("home", DefaultHome())
	viper.SetDefault("silent", DefaultSilent)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("no_cache", DefaultNoCache)
	viper.SetDefault("keep_build", DefaultKeepBuild)
	viper.SetDefault("lock_timeout", DefaultLockTimeout)
	viper.SetDefault("log_format", DefaultLogFormat)
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	globalDir := GlobalConfigDir()
	if globalDir == "" {
		return
	}

	for _, ext := range configExtensions {
		globalPath := filepath.Join(globalDir, "config."+ext)

		if _, err := os.Stat(globalPath); err == nil {
			viper.SetConfigFile(globalPath)

			if err := viper.MergeInConfig(); err == nil {
				break
			}
		}
	}
}

// loadLocalConfig merges the nearest .keg.* config. The search starts at the
// directory of a formula file argument, or the working directory otherwise.
func (l *Loader) loadLocalConfig(args []string) {
	dir := ""

	if len(args) > 0 && strings.HasSuffix(args[0], ".toml") {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return // silently ignore, config.Load() will handle validation
		}

		dir = filepath.Dir(abs)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return
		}

		dir = cwd
	}

	localPath := FindLocalConfig(dir)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// bindEnv lets KEG_PREFIX, KEG_HOME, KEG_NO_CACHE, ... override config files
func (l *Loader) bindEnv() {
	viper.SetEnvPrefix("keg")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	flags := map[string]string{
		"prefix":     "prefix",
		"home":       "home",
		"silent":     "silent",
		"verbose":    "verbose",
		"out":        "out",
		"no_cache":   "no-cache",
		"keep_build": "keep-build",
	}

	for key, name := range flags {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}
