package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reze83/Flynn-Project-sub000/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Flynn configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/flynn/config.yaml
Project-specific overrides can be placed in .flynn.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("delegate.binary: %s\n", cfg.Delegate.Binary)
	fmt.Printf("delegate.model: %s\n", orUnset(cfg.Delegate.Model))
	fmt.Printf("delegate.extra_args: %s\n", orUnset(strings.Join(cfg.Delegate.ExtraArgs, " ")))
	fmt.Printf("delegate.timeout: %s\n", cfg.Delegate.Timeout)
	fmt.Printf("delegate.max_parallel: %d\n", cfg.Delegate.MaxParallel)
	fmt.Printf("sessions.dir: %s\n", orUnset(cfg.Sessions.Dir))
	fmt.Printf("sessions.retention: %s\n", cfg.Sessions.Retention)
	fmt.Printf("chunking.score_threshold: %d\n", cfg.Chunking.ScoreThreshold)
	fmt.Printf("chunking.timeout_fraction: %g\n", cfg.Chunking.TimeoutFraction)
	fmt.Printf("chunking.min_chunks: %d\n", cfg.Chunking.MinChunks)
	fmt.Printf("chunking.max_chunks: %d\n", cfg.Chunking.MaxChunks)
	fmt.Printf("policy.rules_file: %s\n", orUnset(cfg.Policy.RulesFile))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "delegate.binary":
		return cfg.Delegate.Binary, nil
	case "delegate.model":
		return orUnset(cfg.Delegate.Model), nil
	case "delegate.extra_args":
		return orUnset(strings.Join(cfg.Delegate.ExtraArgs, " ")), nil
	case "delegate.timeout":
		return cfg.Delegate.Timeout.String(), nil
	case "delegate.max_parallel":
		return strconv.Itoa(cfg.Delegate.MaxParallel), nil
	case "sessions.dir":
		return orUnset(cfg.Sessions.Dir), nil
	case "sessions.retention":
		return cfg.Sessions.Retention.String(), nil
	case "chunking.score_threshold":
		return strconv.Itoa(cfg.Chunking.ScoreThreshold), nil
	case "chunking.timeout_fraction":
		return strconv.FormatFloat(cfg.Chunking.TimeoutFraction, 'g', -1, 64), nil
	case "chunking.min_chunks":
		return strconv.Itoa(cfg.Chunking.MinChunks), nil
	case "chunking.max_chunks":
		return strconv.Itoa(cfg.Chunking.MaxChunks), nil
	case "policy.rules_file":
		return orUnset(cfg.Policy.RulesFile), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "delegate.binary":
		cfg.Delegate.Binary = value
	case "delegate.model":
		cfg.Delegate.Model = value
	case "delegate.extra_args":
		cfg.Delegate.ExtraArgs = strings.Fields(value)
	case "delegate.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for delegate.timeout: %w", err)
		}
		cfg.Delegate.Timeout = d
	case "delegate.max_parallel":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for delegate.max_parallel: %w", err)
		}
		cfg.Delegate.MaxParallel = n
	case "sessions.dir":
		cfg.Sessions.Dir = value
	case "sessions.retention":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for sessions.retention: %w", err)
		}
		cfg.Sessions.Retention = d
	case "chunking.score_threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for chunking.score_threshold: %w", err)
		}
		cfg.Chunking.ScoreThreshold = n
	case "chunking.timeout_fraction":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for chunking.timeout_fraction: %w", err)
		}
		cfg.Chunking.TimeoutFraction = f
	case "chunking.min_chunks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for chunking.min_chunks: %w", err)
		}
		cfg.Chunking.MinChunks = n
	case "chunking.max_chunks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for chunking.max_chunks: %w", err)
		}
		cfg.Chunking.MaxChunks = n
	case "policy.rules_file":
		cfg.Policy.RulesFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
