package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service. It is constructed once at
// startup and passed by reference into the components that need it.
type Config struct {
	ServerPort    int    `mapstructure:"SERVER_PORT"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`
}

// SecretConfigured reports whether the webhook shared secret is present.
// Readiness depends on it: without a secret every signature check fails.
func (c *Config) SecretConfigured() bool {
	return c.WebhookSecret != ""
}

// Load reads configuration from config.defaults.yaml (optional) and the
// environment. Environment variables use the APP_ prefix, e.g.
// APP_WEBHOOK_SECRET, APP_DATABASE_URL.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config.defaults")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("APP")

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "messages.db")
	v.SetDefault("WEBHOOK_SECRET", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("configuration file not found; using defaults and environment variables")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
