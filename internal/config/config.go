// Package config loads application configuration from config.yaml and
// SOURCING_* environment variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" mapstructure:"embeddings"`
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
}

// AnthropicConfig holds the QA model settings.
type AnthropicConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	Model           string  `yaml:"model" mapstructure:"model"`
	MaxTokens       int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Workers         int     `yaml:"workers" mapstructure:"workers"`
	RequestsPerSec  float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	QuotaAbortLimit int     `yaml:"quota_abort_limit" mapstructure:"quota_abort_limit"`
}

// EmbeddingsConfig holds the embedding provider settings.
type EmbeddingsConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Model      string `yaml:"model" mapstructure:"model"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// MatchConfig configures fuzzy matching.
type MatchConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SOURCING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default empty so AutomaticEnv can see their keys.
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.page_size", 1000)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("embeddings.key", "")
	v.SetDefault("embeddings.base_url", "")
	v.SetDefault("embeddings.dimensions", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.workers", 10)
	v.SetDefault("anthropic.requests_per_sec", 5.0)
	v.SetDefault("anthropic.quota_abort_limit", 30)
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.batch_size", 100)
	v.SetDefault("match.threshold", 90.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
