// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DataDir     string `mapstructure:"DATA_DIR"`
	GithubToken string `mapstructure:"GITHUB_TOKEN"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
}

// LoadConfig reads configuration from file and/or environment variables.
// The token is optional: without one the remote applies its anonymous
// rate-limit ceiling.
func LoadConfig() (*Config, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("HTTP_ADDR", ":8080")
	// Unmarshal only sees keys viper knows about; without a registered
	// default, an env-only GITHUB_TOKEN would be dropped.
	viper.SetDefault("GITHUB_TOKEN", "")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR must not be empty")
	}

	return &cfg, nil
}
