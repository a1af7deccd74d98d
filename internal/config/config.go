// Package config handles configuration loading for flynn. It supports XDG
// config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine settings.
type Config struct {
	Delegate DelegateConfig `mapstructure:"delegate"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Chunking ChunkingConfig `mapstructure:"chunking"`
	Policy   PolicyConfig   `mapstructure:"policy"`
}

// DelegateConfig holds external tool settings.
type DelegateConfig struct {
	// Binary is the delegate CLI executable name or path.
	Binary string `mapstructure:"binary"`
	// Model overrides the tool's configured model when set.
	Model string `mapstructure:"model"`
	// ExtraArgs are appended to every invocation.
	ExtraArgs []string `mapstructure:"extra_args"`
	// Timeout is the default per-delegation timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxParallel caps concurrent subprocesses within a group.
	MaxParallel int `mapstructure:"max_parallel"`
}

// SessionsConfig holds session persistence settings.
type SessionsConfig struct {
	// Dir is the sessions root; empty means the XDG data default.
	Dir string `mapstructure:"dir"`
	// Retention is how long finished sessions are kept before cleanup.
	Retention time.Duration `mapstructure:"retention"`
}

// ChunkingConfig holds task decomposition thresholds.
type ChunkingConfig struct {
	ScoreThreshold  int     `mapstructure:"score_threshold"`
	TimeoutFraction float64 `mapstructure:"timeout_fraction"`
	MinChunks       int     `mapstructure:"min_chunks"`
	MaxChunks       int     `mapstructure:"max_chunks"`
}

// PolicyConfig holds the policy rule file location.
type PolicyConfig struct {
	RulesFile string `mapstructure:"rules_file"`
}

// Load loads configuration with the usual precedence, highest first:
// environment variables (FLYNN_*), project config (.flynn.yaml found by
// walking up from the working directory), user config
// (~/.config/flynn/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("FLYNN")
	v.AutomaticEnv()
	v.BindEnv("delegate.binary", "FLYNN_DELEGATE_BINARY")
	v.BindEnv("delegate.model", "FLYNN_DELEGATE_MODEL")
	v.BindEnv("sessions.dir", "FLYNN_SESSIONS_DIR")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Save writes the user-settable values to the user config file.
func Save(cfg *Config) error {
	dir := userConfigDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))

	v.Set("delegate.binary", cfg.Delegate.Binary)
	v.Set("delegate.model", cfg.Delegate.Model)
	v.Set("delegate.extra_args", cfg.Delegate.ExtraArgs)
	v.Set("delegate.timeout", cfg.Delegate.Timeout.String())
	v.Set("delegate.max_parallel", cfg.Delegate.MaxParallel)
	v.Set("sessions.dir", cfg.Sessions.Dir)
	v.Set("sessions.retention", cfg.Sessions.Retention.String())
	v.Set("chunking.score_threshold", cfg.Chunking.ScoreThreshold)
	v.Set("chunking.timeout_fraction", cfg.Chunking.TimeoutFraction)
	v.Set("chunking.min_chunks", cfg.Chunking.MinChunks)
	v.Set("chunking.max_chunks", cfg.Chunking.MaxChunks)
	v.Set("policy.rules_file", cfg.Policy.RulesFile)

	return v.WriteConfig()
}

// UserConfigPath returns the path to the user config file.
func UserConfigPath() string {
	return filepath.Join(userConfigDir(), "config.yaml")
}

// ProjectConfigPath returns the path to the project config file, or "".
func ProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("delegate.binary", "codex")
	v.SetDefault("delegate.model", "")
	v.SetDefault("delegate.extra_args", []string{})
	v.SetDefault("delegate.timeout", "15m")
	v.SetDefault("delegate.max_parallel", 3)

	v.SetDefault("sessions.dir", "")
	v.SetDefault("sessions.retention", "720h")

	v.SetDefault("chunking.score_threshold", 60)
	v.SetDefault("chunking.timeout_fraction", 0.8)
	v.SetDefault("chunking.min_chunks", 2)
	v.SetDefault("chunking.max_chunks", 10)

	v.SetDefault("policy.rules_file", "")
}

// userConfigDir returns the XDG config directory for flynn.
func userConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "flynn")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "flynn")
	}
	return filepath.Join(home, ".config", "flynn")
}

// findProjectConfig searches for .flynn.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".flynn.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

// Default returns a Config with built-in defaults, no files consulted.
func Default() *Config {
	return &Config{
		Delegate: DelegateConfig{
			Binary:      "codex",
			Timeout:     15 * time.Minute,
			MaxParallel: 3,
		},
		Sessions: SessionsConfig{
			Retention: 720 * time.Hour,
		},
		Chunking: ChunkingConfig{
			ScoreThreshold:  60,
			TimeoutFraction: 0.8,
			MinChunks:       2,
			MaxChunks:       10,
		},
	}
}
