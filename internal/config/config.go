package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const EnvPrefix = "SHOTSMARTS"

type Config struct {
	DatabaseDriver string `mapstructure:"database_driver"`
	DatabasePath   string `mapstructure:"database_path"`
	LogLevel       string `mapstructure:"log_level"`
	ListenAddr     string `mapstructure:"listen_addr"`
	BackupSchedule string `mapstructure:"backup_schedule"`
	BackupDir      string `mapstructure:"backup_dir"`
	BackupKeep     int    `mapstructure:"backup_keep"`
	Locale         string `mapstructure:"locale"`
}

var (
	validDrivers   = []string{"json", "bolt", "sqlite"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_driver", "json")
	v.SetDefault("database_path", "./shotsmarts-data/savedParameters.json")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", "127.0.0.1:9080")
	v.SetDefault("backup_schedule", "@daily")
	v.SetDefault("backup_dir", "./shotsmarts-data/backups")
	v.SetDefault("backup_keep", 7)
	v.SetDefault("locale", "en")
}

// Load reads configuration from defaults, an optional .env file, an
// optional YAML file and SHOTSMARTS_* environment variables, in increasing
// order of precedence.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; settings may come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.shotsmarts")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// EnsureDirs creates the directories the storage and backup paths live in.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(filepath.Dir(c.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	if c.BackupDir != "" {
		if err := os.MkdirAll(c.BackupDir, 0755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if !contains(validDrivers, c.DatabaseDriver) {
		return fmt.Errorf("database_driver must be one of %v, got %q", validDrivers, c.DatabaseDriver)
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("database_path cannot be empty")
	}

	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("log_level must be one of %v, got %s", validLogLevels, c.LogLevel)
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}

	if c.BackupSchedule != "" {
		if _, err := cron.ParseStandard(c.BackupSchedule); err != nil {
			return fmt.Errorf("backup_schedule %q is not a valid cron spec: %w", c.BackupSchedule, err)
		}
		if c.BackupDir == "" {
			return fmt.Errorf("backup_dir cannot be empty when backup_schedule is set")
		}
	}

	if c.BackupKeep < 1 || c.BackupKeep > 365 {
		return fmt.Errorf("backup_keep must be between 1 and 365, got %d", c.BackupKeep)
	}

	if c.Locale == "" {
		return fmt.Errorf("locale cannot be empty")
	}

	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{DatabaseDriver: %s, DatabasePath: %s, LogLevel: %s, ListenAddr: %s, BackupSchedule: %q, BackupDir: %s, BackupKeep: %d, Locale: %s}",
		c.DatabaseDriver, c.DatabasePath, c.LogLevel, c.ListenAddr, c.BackupSchedule, c.BackupDir, c.BackupKeep, c.Locale)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
