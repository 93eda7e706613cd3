package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/htafolla/StringRay-sub003/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify StringRay configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/strray/config.yaml
Project-specific overrides can be placed in .strray.yaml`,
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
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("scheduler.max_concurrent_tasks: %d\n", cfg.Scheduler.MaxConcurrentTasks)
	fmt.Printf("scheduler.task_timeout: %s\n", cfg.Scheduler.TaskTimeout)
	fmt.Printf("scheduler.conflict_strategy: %s\n", cfg.Scheduler.ConflictStrategy)
	fmt.Printf("scheduler.max_retries: %d\n", cfg.Scheduler.MaxRetries)
	fmt.Printf("scheduler.retry_backoff: %s\n", cfg.Scheduler.RetryBackoff)
	fmt.Printf("complexity.moderate_threshold: %.1f\n", cfg.Complexity.ModerateThreshold)
	fmt.Printf("complexity.complex_threshold: %.1f\n", cfg.Complexity.ComplexThreshold)
	fmt.Printf("complexity.enterprise_threshold: %.1f\n", cfg.Complexity.EnterpriseThreshold)
	fmt.Printf("registry.roster_path: %s\n", cfg.Registry.RosterPath)
	fmt.Printf("registry.fallback: %s\n", cfg.Registry.Fallback)
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
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_aws_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseAWSBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "scheduler.max_concurrent_tasks":
		return strconv.Itoa(cfg.Scheduler.MaxConcurrentTasks), nil
	case "scheduler.task_timeout":
		return cfg.Scheduler.TaskTimeout.String(), nil
	case "scheduler.conflict_strategy":
		return cfg.Scheduler.ConflictStrategy, nil
	case "scheduler.max_retries":
		return strconv.Itoa(cfg.Scheduler.MaxRetries), nil
	case "scheduler.retry_backoff":
		return cfg.Scheduler.RetryBackoff.String(), nil
	case "complexity.moderate_threshold":
		return strconv.FormatFloat(cfg.Complexity.ModerateThreshold, 'f', 1, 64), nil
	case "complexity.complex_threshold":
		return strconv.FormatFloat(cfg.Complexity.ComplexThreshold, 'f', 1, 64), nil
	case "complexity.enterprise_threshold":
		return strconv.FormatFloat(cfg.Complexity.EnterpriseThreshold, 'f', 1, 64), nil
	case "registry.roster_path":
		return cfg.Registry.RosterPath, nil
	case "registry.fallback":
		return cfg.Registry.Fallback, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_aws_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_aws_bedrock: %w", err)
		}
		cfg.Anthropic.UseAWSBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "scheduler.max_concurrent_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrent_tasks: %w", err)
		}
		cfg.Scheduler.MaxConcurrentTasks = n
	case "scheduler.task_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for task_timeout: %w", err)
		}
		cfg.Scheduler.TaskTimeout = d
	case "scheduler.conflict_strategy":
		cfg.Scheduler.ConflictStrategy = value
	case "scheduler.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_retries: %w", err)
		}
		cfg.Scheduler.MaxRetries = n
	case "scheduler.retry_backoff":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for retry_backoff: %w", err)
		}
		cfg.Scheduler.RetryBackoff = d
	case "complexity.moderate_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for moderate_threshold: %w", err)
		}
		cfg.Complexity.ModerateThreshold = f
	case "complexity.complex_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for complex_threshold: %w", err)
		}
		cfg.Complexity.ComplexThreshold = f
	case "complexity.enterprise_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for enterprise_threshold: %w", err)
		}
		cfg.Complexity.EnterpriseThreshold = f
	case "registry.roster_path":
		cfg.Registry.RosterPath = value
	case "registry.fallback":
		cfg.Registry.Fallback = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
