// Package config handles configuration loading and management for StringRay.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// Config holds all configuration for StringRay.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Complexity ComplexityConfig `mapstructure:"complexity"`
	Registry   RegistryConfig   `mapstructure:"registry"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// SchedulerConfig holds execution limits for the task scheduler.
type SchedulerConfig struct {
	MaxConcurrentTasks int           `mapstructure:"max_concurrent_tasks"`
	TaskTimeout        time.Duration `mapstructure:"task_timeout"`
	ConflictStrategy   string        `mapstructure:"conflict_strategy"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
}

// ComplexityConfig holds the tunable scoring thresholds.
type ComplexityConfig struct {
	ModerateThreshold   float64 `mapstructure:"moderate_threshold"`
	ComplexThreshold    float64 `mapstructure:"complex_threshold"`
	EnterpriseThreshold float64 `mapstructure:"enterprise_threshold"`
}

// RegistryConfig holds agent roster settings.
type RegistryConfig struct {
	// RosterPath points to a YAML roster overriding the built-in agents.
	RosterPath string `mapstructure:"roster_path"`
	// Fallback names the agent used when nothing else is available.
	Fallback string `mapstructure:"fallback"`
}

// ResolveConflictStrategy returns the configured strategy as a model
// value, or majority-vote when unset or invalid.
func (sc SchedulerConfig) ResolveConflictStrategy() models.ConflictStrategy {
	s := models.ConflictStrategy(sc.ConflictStrategy)
	if !s.Valid() {
		return models.ConflictMajorityVote
	}
	return s
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.strray.yaml in current directory or parent)
// 3. User config (~/.config/strray/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Project config takes precedence.
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
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

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("scheduler.max_concurrent_tasks", cfg.Scheduler.MaxConcurrentTasks)
	v.Set("scheduler.task_timeout", cfg.Scheduler.TaskTimeout.String())
	v.Set("scheduler.conflict_strategy", cfg.Scheduler.ConflictStrategy)
	v.Set("scheduler.max_retries", cfg.Scheduler.MaxRetries)
	v.Set("scheduler.retry_backoff", cfg.Scheduler.RetryBackoff.String())
	v.Set("complexity.moderate_threshold", cfg.Complexity.ModerateThreshold)
	v.Set("complexity.complex_threshold", cfg.Complexity.ComplexThreshold)
	v.Set("complexity.enterprise_threshold", cfg.Complexity.EnterpriseThreshold)
	v.Set("registry.roster_path", cfg.Registry.RosterPath)
	v.Set("registry.fallback", cfg.Registry.Fallback)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Watch invokes onChange whenever the given config file is rewritten.
// The watcher runs until the returned stop function is called.
func Watch(path string, onChange func()) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors replace files instead of writing in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == path && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("scheduler.max_concurrent_tasks", 5)
	v.SetDefault("scheduler.task_timeout", "300s")
	v.SetDefault("scheduler.conflict_strategy", "majority-vote")
	v.SetDefault("scheduler.max_retries", 2)
	v.SetDefault("scheduler.retry_backoff", "500ms")

	v.SetDefault("complexity.moderate_threshold", 10.0)
	v.SetDefault("complexity.complex_threshold", 25.0)
	v.SetDefault("complexity.enterprise_threshold", 60.0)

	v.SetDefault("registry.roster_path", "")
	v.SetDefault("registry.fallback", "generalist")
}

// getUserConfigDir returns the XDG config directory for StringRay.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "strray")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "strray")
	}
	return filepath.Join(home, ".config", "strray")
}

// findProjectConfig searches for .strray.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".strray.yaml")
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

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxConcurrentTasks: 5,
			TaskTimeout:        300 * time.Second,
			ConflictStrategy:   "majority-vote",
			MaxRetries:         2,
			RetryBackoff:       500 * time.Millisecond,
		},
		Complexity: ComplexityConfig{
			ModerateThreshold:   10.0,
			ComplexThreshold:    25.0,
			EnterpriseThreshold: 60.0,
		},
		Registry: RegistryConfig{
			Fallback: "generalist",
		},
	}
}
