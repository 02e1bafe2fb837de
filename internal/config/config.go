package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultSilent      = false
	DefaultVerbose     = false
	DefaultNoCache     = false
	DefaultKeepBuild   = false
	DefaultLockTimeout = 10 * time.Second
	DefaultLogFormat   = "text"
)

// Holds the configuration options for keg
type Config struct {
	// Install prefix for bin, share/man, ...
	Prefix string

	// keg home: download cache, receipts, staging directories
	Home string

	// Extra directories holding *.toml formulas
	FormulaDirs []string

	// Output file for build logs
	OutputFile string

	// Suppress console output from build steps
	Silent bool

	// Enable verbose output
	Verbose bool

	// Do not read or write the download cache
	NoCache bool

	// Keep the staging build directory after install
	KeepBuild bool

	// How long to wait for another install to finish
	LockTimeout time.Duration

	// Command prefix used to install missing dependencies, e.g. [brew install]
	DependencyInstaller []string

	// Per-dependency probe commands
	Probes map[string][]string

	// text or json
	LogFormat string
}

// DefaultPrefix is ~/.local, falling back to the working directory
func DefaultPrefix() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local")
	}

	return ".local"
}

// DefaultHome is ~/.keg
func DefaultHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".keg")
	}

	return ".keg"
}

func Load() (*Config, error) {
	cfg := &Config{
		Prefix:              viper.GetString("prefix"),
		Home:                viper.GetString("home"),
		FormulaDirs:         viper.GetStringSlice("formula_dirs"),
		OutputFile:          viper.GetString("out"),
		Silent:              viper.GetBool("silent"),
		Verbose:             viper.GetBool("verbose"),
		NoCache:             viper.GetBool("no_cache"),
		KeepBuild:           viper.GetBool("keep_build"),
		LockTimeout:         viper.GetDuration("lock_timeout"),
		DependencyInstaller: viper.GetStringSlice("dependency_installer"),
		Probes:              viper.GetStringMapStringSlice("probes"),
		LogFormat:           viper.GetString("log_format"),
	}

	// Apply defaults if not set
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix()
	}

	if cfg.Home == "" {
		cfg.Home = DefaultHome()
	}

	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	abs, err := filepath.Abs(c.Prefix)
	if err != nil {
		return fmt.Errorf("invalid prefix: %v", err)
	}

	c.Prefix = abs

	abs, err = filepath.Abs(c.Home)
	if err != nil {
		return fmt.Errorf("invalid home: %v", err)
	}

	c.Home = abs

	// Resolve output file path
	if c.OutputFile != "" {
		abs, err := filepath.Abs(c.OutputFile)
		if err != nil {
			return fmt.Errorf("invalid output file path: %v", err)
		}

		c.OutputFile = abs
	}

	// Resolve formula folders
	for i, dir := range c.FormulaDirs {
		if dir != "" {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("invalid formula folder path: %v", err)
			}

			c.FormulaDirs[i] = abs
		}
	}

	if c.LockTimeout < 0 {
		return fmt.Errorf("invalid lock timeout: %s", c.LockTimeout)
	}

	if len(c.DependencyInstaller) > 0 && c.DependencyInstaller[0] == "" {
		return fmt.Errorf("invalid dependency installer: empty command")
	}

	for name, probe := range c.Probes {
		if len(probe) == 0 || probe[0] == "" {
			return fmt.Errorf("invalid probe for %s: empty command", name)
		}
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	return nil
}

// FormulaSearchPath returns the formula directories in load order:
// <home>/formulas first, then configured folders
func (c *Config) FormulaSearchPath() []string {
	dirs := []string{filepath.Join(c.Home, "formulas")}
	for _, d := range c.FormulaDirs {
		if d != "" {
			dirs = append(dirs, d)
		}
	}

	return dirs
}
