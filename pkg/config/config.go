// Package config loads application configuration from file, defaults,
// and environment variables via viper.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Server         ServerConfig         `mapstructure:"server"`
	Store          StoreConfig          `mapstructure:"store"`
	LLM            LLMConfig            `mapstructure:"llm"`
	Embedding      EmbeddingConfig      `mapstructure:"embedding"`
	Engine         EngineConfig         `mapstructure:"engine"`
	Checkpoint     CheckpointConfig     `mapstructure:"checkpoint"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StoreConfig holds graph storage configuration.
type StoreConfig struct {
	Provider   string `mapstructure:"provider"` // neo4j, badger
	URI        string `mapstructure:"uri"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	Path       string `mapstructure:"path"` // badger data directory
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig holds language model configuration.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // openai
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, embedeverything
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// EngineConfig holds knowledge engine tuning.
type EngineConfig struct {
	DefaultScopeID  string                   `mapstructure:"default_scope_id"`
	SearchLimit     int                      `mapstructure:"search_limit"`
	SearchThreshold float64                  `mapstructure:"search_threshold"`
	TraversalDepth  int                      `mapstructure:"traversal_depth"`
	TraversalLimit  int                      `mapstructure:"traversal_limit"`
	Relationships   []RelationshipRuleConfig `mapstructure:"relationships"`

	// RelationshipsFile names a standalone YAML rules file; rules
	// loaded from it are appended to Relationships.
	RelationshipsFile string `mapstructure:"relationships_file"`
}

// RelationshipRuleConfig is one extraction allow-list entry.
type RelationshipRuleConfig struct {
	FromLabel string `mapstructure:"from_label" yaml:"from_label"`
	Type      string `mapstructure:"type" yaml:"type"`
	ToLabel   string `mapstructure:"to_label" yaml:"to_label"`
}

// CheckpointConfig holds ingestion journal configuration.
type CheckpointConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CircuitBreakerConfig holds configuration for circuit breaking.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

// LoadFile reads the named config file, then finishes with Load.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		viper.SetConfigName("mnemo")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.mnemo")
		}
		// Missing config file is fine, defaults and env apply.
		_ = viper.ReadInConfig()
	}

	viper.SetEnvPrefix("MNEMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return Load()
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("store.provider", "badger")
	viper.SetDefault("store.path", "./mnemo_db")
	viper.SetDefault("store.uri", "bolt://localhost:7687")
	viper.SetDefault("store.database", "neo4j")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.0)

	viper.SetDefault("embedding.provider", "embedeverything")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	viper.SetDefault("embedding.dimensions", 384)
	viper.SetDefault("embedding.batch_size", 100)

	viper.SetDefault("engine.default_scope_id", "default")
	viper.SetDefault("engine.search_limit", 10)
	viper.SetDefault("engine.search_threshold", 0.0)
	viper.SetDefault("engine.traversal_depth", 2)
	viper.SetDefault("engine.traversal_limit", 100)

	viper.SetDefault("checkpoint.enabled", false)
	if home, err := os.UserHomeDir(); err == nil {
		viper.SetDefault("checkpoint.path", home+"/.mnemo/checkpoints")
	}

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

// overrideWithEnv overrides config with well-known environment
// variables that have no MNEMO_ prefix.
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.LLM.APIKey == "" {
			config.LLM.APIKey = apiKey
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USERNAME"); user != "" {
		config.Store.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Store.Password = pass
	}
}
