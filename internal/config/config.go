// Package config loads cachalot configuration from cachalot.yml and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Sloppy is a bitmask of correctness checks the user has opted out of.
type Sloppy uint32

const (
	// SloppyTimeMacros skips temporal macro detection entirely when
	// hashing source text.
	SloppyTimeMacros Sloppy = 1 << iota
	// SloppyPCHDefines ignores #defines when hashing precompiled headers.
	SloppyPCHDefines
	// SloppyFileStatMatches trusts size+mtime matches without rehashing.
	SloppyFileStatMatches
	// SloppyIncludeFileMTime ignores too-new include file mtimes.
	SloppyIncludeFileMTime
)

// Has reports whether flag is set in s.
func (s Sloppy) Has(flag Sloppy) bool {
	return s&flag != 0
}

var sloppyNames = map[string]Sloppy{
	"time_macros":        SloppyTimeMacros,
	"pch_defines":        SloppyPCHDefines,
	"file_stat_matches":  SloppyFileStatMatches,
	"include_file_mtime": SloppyIncludeFileMTime,
}

// Config represents the cachalot configuration.
type Config struct {
	CacheDir      string   `mapstructure:"cache_dir"`
	CompilerCheck string   `mapstructure:"compiler_check"`
	Sloppiness    []string `mapstructure:"sloppiness"`
	LockTimeoutMS int      `mapstructure:"lock_timeout_ms"`
	LogFile       string   `mapstructure:"log_file"`
	Verbose       bool     `mapstructure:"verbose"`
}

// Load loads the configuration from cachalot.yml or cachalot.yaml, falling
// back to defaults when no file exists.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("compiler_check", "%compiler% -v")
	v.SetDefault("lock_timeout_ms", 2000)

	// Set config name and paths
	v.SetConfigName("cachalot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "cachalot"))
	}

	// Enable environment variable support
	v.SetEnvPrefix("CACHALOT")
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SloppyFlags parses the sloppiness list into a bitmask. Unknown names are
// rejected so typos don't silently disable nothing.
func (c *Config) SloppyFlags() (Sloppy, error) {
	var flags Sloppy
	for _, name := range c.Sloppiness {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		flag, ok := sloppyNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown sloppiness flag: %s", name)
		}
		flags |= flag
	}
	return flags, nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "cachalot")
	}
	return ".cachalot"
}

// validateConfig validates the configuration.
func validateConfig(cfg *Config) error {
	if cfg.LockTimeoutMS <= 0 {
		return fmt.Errorf("lock_timeout_ms must be positive, got: %d", cfg.LockTimeoutMS)
	}
	if _, err := cfg.SloppyFlags(); err != nil {
		return err
	}
	return nil
}
