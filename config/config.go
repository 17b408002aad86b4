// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/stratastor/logger"
	"github.com/stratastor/netfix/internal/constants"
	"gopkg.in/yaml.v3"
)

var (
	instance   *Config
	once       sync.Once
	configPath string // Tracks where the config was loaded from
)

type Config struct {
	Server struct {
		Port      int    `mapstructure:"port"`
		LogLevel  string `mapstructure:"logLevel"`
		Daemonize bool   `mapstructure:"daemonize"`
	} `mapstructure:"server"`

	Fix struct {
		Level        string `mapstructure:"level"`        // conservative, moderate, aggressive
		Workers      int    `mapstructure:"workers"`      // per-file fix parallelism
		DryRun       bool   `mapstructure:"dryRun"`       // compute fixes, write nothing
		BackupSuffix string `mapstructure:"backupSuffix"` // appended to backup file names
	} `mapstructure:"fix"`

	Logs struct {
		Path   string `mapstructure:"path"`
		Output string `mapstructure:"output"` // stdout or file
	} `mapstructure:"logs"`

	Logger struct {
		LogLevel     string `mapstructure:"logLevel"`
		EnableSentry bool   `mapstructure:"enableSentry"`
		SentryDSN    string `mapstructure:"sentryDSN"`
	} `mapstructure:"logger"`

	Environment string `mapstructure:"environment"`
}

// GetConfigDir returns the directory netfix keeps its configuration in.
// Root gets the system path, everyone else a dotdir in $HOME.
func GetConfigDir() string {
	if os.Geteuid() == 0 {
		return "/etc/netfix"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/netfix"
	}
	return filepath.Join(home, ".netfix")
}

// LoadConfig loads the configuration with precedence rules.
func LoadConfig(configFilePath string) *Config {
	once.Do(func() {
		logConfig := logger.Config{
			LogLevel:     "info",
			EnableSentry: false,
			SentryDSN:    "",
		}
		l, err := logger.NewTag(logConfig, "config")
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}

		viper.Reset()
		viper.SetConfigType("yaml")

		systemConfigPath := filepath.Join(GetConfigDir(), constants.ConfigFileName)

		if configFilePath != "" {
			// 1. Priority: Explicit path from command line
			configPath = configFilePath
		} else if envPath := os.Getenv("NETFIX_CONFIG"); envPath != "" {
			// 2. Priority: Environment variable
			configPath = envPath
		} else {
			// 3. Priority: Default to system-wide config
			configPath = systemConfigPath
		}

		if absPath, err := filepath.Abs(configPath); err == nil {
			configPath = absPath
		}

		viper.SetConfigFile(configPath)

		viper.SetDefault("environment", "dev")
		viper.SetDefault("server.port", 8046)
		viper.SetDefault("server.logLevel", "debug")
		viper.SetDefault("server.daemonize", false)
		viper.SetDefault("fix.level", "moderate")
		viper.SetDefault("fix.workers", 4)
		viper.SetDefault("fix.dryRun", false)
		viper.SetDefault("fix.backupSuffix", ".netfix-bak")
		viper.SetDefault("logs.path", "/var/log/netfix/netfix.log")
		viper.SetDefault("logs.output", "stdout")
		viper.SetDefault("logger.logLevel", "debug")
		viper.SetDefault("logger.enableSentry", false)
		viper.SetDefault("logger.sentryDSN", "")

		viper.AutomaticEnv()
		viper.SetEnvPrefix("NETFIX")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		err = viper.ReadInConfig()

		if err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				l.Info("Config file not found, using defaults", "path", configPath)
			} else {
				l.Error("Error reading config file", "err", err)
			}
			var cfg Config
			if err := viper.Unmarshal(&cfg); err != nil {
				l.Error("Failed to unmarshal default configuration", "err", err)
			}
			instance = &cfg
		} else {
			configPath = viper.ConfigFileUsed()
			var cfg Config
			if err := viper.Unmarshal(&cfg); err != nil {
				l.Error("Failed to parse configuration", "err", err)
			} else {
				instance = &cfg
			}
		}

		l.Debug("Loaded configuration", "config", fmt.Sprintf("%+v", instance))
	})

	return instance
}

// SaveConfig persists the current configuration to a specified path.
func SaveConfig(path string) error {
	if path == "" {
		if err := os.MkdirAll(GetConfigDir(), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		path = filepath.Join(GetConfigDir(), constants.ConfigFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configYAML, err := yaml.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	if err := os.WriteFile(path, configYAML, 0644); err != nil {
		return fmt.Errorf("failed to write configuration to file: %w", err)
	}

	configPath = path
	return nil
}

// GetLoadedConfigPath returns the path of the currently loaded configuration file.
func GetLoadedConfigPath() string {
	return configPath
}

// GetConfig returns the current configuration instance.
func GetConfig() *Config {
	if instance == nil {
		return LoadConfig("")
	}
	return instance
}

func NewLoggerConfig(cfg *Config) logger.Config {
	if cfg == nil {
		return logger.Config{
			LogLevel:     "info",
			EnableSentry: false,
			SentryDSN:    "",
		}
	}

	return logger.Config{
		LogLevel:     cfg.Logger.LogLevel,
		EnableSentry: cfg.Logger.EnableSentry,
		SentryDSN:    cfg.Logger.SentryDSN,
	}
}
