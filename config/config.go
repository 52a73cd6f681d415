// Package config loads service configuration from the environment and an
// optional config.yml, env-first with file defaults underneath.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Reasoning     ReasoningConfig     `mapstructure:"reasoning"`
	Validation    ReasoningConfig     `mapstructure:"validation"`
	Health        HealthConfig        `mapstructure:"health"`
	Assess        AssessConfig        `mapstructure:"assess"`
	Store         StoreConfig         `mapstructure:"store"`
	LogLevel      string              `mapstructure:"log_level"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// TranscriptionConfig configures the speech service adapter.
type TranscriptionConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// ReasoningConfig configures one LLM adapter.
type ReasoningConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// HealthConfig configures the capability monitor.
type HealthConfig struct {
	TTL          time.Duration `mapstructure:"ttl"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// AssessConfig holds orchestration tunables.
type AssessConfig struct {
	TranscriptionWeight float64       `mapstructure:"transcription_weight"`
	ReasoningWeight     float64       `mapstructure:"reasoning_weight"`
	ValidationWeight    float64       `mapstructure:"validation_weight"`
	DefaultTimeout      time.Duration `mapstructure:"default_timeout"`
}

// StoreConfig configures assessment persistence.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration. A .env file is loaded first if present, then
// an optional config.yml, then NEUROTRIAGE_* environment variables, which
// win over everything.
func Load(configFile string) (*Config, error) {
	// Missing .env is fine; it only exists in development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NEUROTRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		// A config file is optional; only an explicitly named one must exist.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && configFile != "" {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("server.addr", ":8080")

	// Credential and URL keys default to empty so viper knows about them;
	// AutomaticEnv only surfaces keys the instance has seen, so a key with
	// no default would silently ignore its environment variable.
	v.SetDefault("transcription.base_url", "")
	v.SetDefault("transcription.api_key", "")
	v.SetDefault("transcription.call_timeout", 60*time.Second)

	v.SetDefault("reasoning.provider", "openai")
	v.SetDefault("reasoning.api_key", "")
	v.SetDefault("reasoning.model", "gpt-4o-mini")
	v.SetDefault("reasoning.temperature", 0.2)
	v.SetDefault("reasoning.max_tokens", 1024)
	v.SetDefault("reasoning.call_timeout", 45*time.Second)

	v.SetDefault("validation.provider", "anthropic")
	v.SetDefault("validation.api_key", "")
	v.SetDefault("validation.model", "claude-3-5-haiku-latest")
	v.SetDefault("validation.temperature", 0.2)
	v.SetDefault("validation.max_tokens", 512)
	v.SetDefault("validation.call_timeout", 30*time.Second)

	v.SetDefault("health.ttl", 60*time.Second)
	v.SetDefault("health.probe_timeout", 10*time.Second)

	v.SetDefault("assess.transcription_weight", 0.3)
	v.SetDefault("assess.reasoning_weight", 0.5)
	v.SetDefault("assess.validation_weight", 0.2)
	v.SetDefault("assess.default_timeout", 2*time.Minute)

	v.SetDefault("store.path", "neurotriage.db")
}
