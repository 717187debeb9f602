package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/longkey1/finanzas/internal/finanzas"
)

// Config holds the configuration for the chat pipeline, providers, storage and server
type Config struct {
	Model           string  `toml:"model" mapstructure:"model"` // Format: "provider:model" (e.g., "gemini:gemini-2.0-flash")
	GeminiBaseURL   string  `toml:"gemini_base_url" mapstructure:"gemini_base_url"`
	GeminiToken     string  `toml:"gemini_token" mapstructure:"gemini_token"`
	ArkBaseURL      string  `toml:"ark_base_url" mapstructure:"ark_base_url"`
	ArkToken        string  `toml:"ark_token" mapstructure:"ark_token"`
	ArkRegion       string  `toml:"ark_region" mapstructure:"ark_region"`
	Timeout         string  `toml:"timeout" mapstructure:"timeout"` // Reply timeout, Go duration syntax
	Temperature     float32 `toml:"temperature" mapstructure:"temperature"`
	TopK            int     `toml:"top_k" mapstructure:"top_k"`
	TopP            float32 `toml:"top_p" mapstructure:"top_p"`
	MaxOutputTokens int     `toml:"max_output_tokens" mapstructure:"max_output_tokens"`
	RateLimit       int     `toml:"rate_limit" mapstructure:"rate_limit"`   // Messages allowed per window
	RateWindow      string  `toml:"rate_window" mapstructure:"rate_window"` // Go duration syntax
	Store           string  `toml:"store" mapstructure:"store"`             // file, memory, sqlite, pebble or redis
	DataDir         string  `toml:"data_dir" mapstructure:"data_dir"`
	RedisAddr       string  `toml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword   string  `toml:"redis_password" mapstructure:"redis_password"`
	RedisDB         int     `toml:"redis_db" mapstructure:"redis_db"`
	RedisPrefix     string  `toml:"redis_prefix" mapstructure:"redis_prefix"`
	PreambleFile    string  `toml:"preamble_file" mapstructure:"preamble_file"` // Optional TOML file overriding the system preamble
	Speak           bool    `toml:"speak" mapstructure:"speak"`                 // Speak assistant replies
	SpeechCommand   string  `toml:"speech_command" mapstructure:"speech_command"`
	ServerAddr      string  `toml:"server_addr" mapstructure:"server_addr"`
	ServerRPS       float64 `toml:"server_rps" mapstructure:"server_rps"` // Per-client HTTP request rate
	ServerBurst     int     `toml:"server_burst" mapstructure:"server_burst"`
}

// GetProvider extracts provider name from the model string
func (c *Config) GetProvider() (string, error) {
	provider, _, err := finanzas.ParseModelString(c.Model)
	return provider, err
}

// GetModelName extracts model name from the model string
func (c *Config) GetModelName() (string, error) {
	_, model, err := finanzas.ParseModelString(c.Model)
	return model, err
}

// ReplyTimeout returns the parsed reply timeout
func (c *Config) ReplyTimeout() (time.Duration, error) {
	return parsePositiveDuration("timeout", c.Timeout)
}

// RateLimitWindow returns the parsed rate-limit window
func (c *Config) RateLimitWindow() (time.Duration, error) {
	return parsePositiveDuration("rate_window", c.RateWindow)
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, value)
	}
	return d, nil
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(dataDir string) *Config {
	return &Config{
		Model:           "gemini:gemini-2.0-flash",
		GeminiBaseURL:   "https://generativelanguage.googleapis.com/v1beta",
		GeminiToken:     "$GEMINI_API_KEY", // Default to env var
		ArkBaseURL:      "https://ark.cn-beijing.volces.com/api/v3",
		ArkToken:        "$ARK_API_KEY",
		ArkRegion:       "cn-beijing",
		Timeout:         "30s",
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
		RateLimit:       3,
		RateWindow:      "10s",
		Store:           "file",
		DataDir:         dataDir,
		RedisAddr:       "localhost:6379",
		RedisPrefix:     "finanzas:",
		SpeechCommand:   "espeak-ng",
		ServerAddr:      ":8080",
		ServerRPS:       5,
		ServerBurst:     10,
	}
}

// SetDefaults registers every default value with viper
func SetDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("model", def.Model)
	v.SetDefault("gemini_base_url", def.GeminiBaseURL)
	v.SetDefault("gemini_token", def.GeminiToken)
	v.SetDefault("ark_base_url", def.ArkBaseURL)
	v.SetDefault("ark_token", def.ArkToken)
	v.SetDefault("ark_region", def.ArkRegion)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("temperature", def.Temperature)
	v.SetDefault("top_k", def.TopK)
	v.SetDefault("top_p", def.TopP)
	v.SetDefault("max_output_tokens", def.MaxOutputTokens)
	v.SetDefault("rate_limit", def.RateLimit)
	v.SetDefault("rate_window", def.RateWindow)
	v.SetDefault("store", def.Store)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("redis_addr", def.RedisAddr)
	v.SetDefault("redis_password", def.RedisPassword)
	v.SetDefault("redis_db", def.RedisDB)
	v.SetDefault("redis_prefix", def.RedisPrefix)
	v.SetDefault("preamble_file", def.PreambleFile)
	v.SetDefault("speak", def.Speak)
	v.SetDefault("speech_command", def.SpeechCommand)
	v.SetDefault("server_addr", def.ServerAddr)
	v.SetDefault("server_rps", def.ServerRPS)
	v.SetDefault("server_burst", def.ServerBurst)
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from v, expanding $VAR tokens and resolving
// relative paths against the config file directory
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for _, field := range []*string{&config.GeminiToken, &config.ArkToken, &config.RedisPassword} {
		expanded, err := expandEnvVar(*field)
		if err != nil {
			return nil, err
		}
		*field = expanded
	}

	for _, field := range []*string{&config.DataDir, &config.PreambleFile} {
		if *field == "" {
			continue
		}
		absPath, err := ResolvePath(v, *field)
		if err != nil {
			return nil, fmt.Errorf("error resolving path '%s': %w", *field, err)
		}
		*field = absPath
	}

	if _, err := config.ReplyTimeout(); err != nil {
		return nil, err
	}
	if _, err := config.RateLimitWindow(); err != nil {
		return nil, err
	}
	if config.RateLimit <= 0 {
		return nil, fmt.Errorf("invalid rate_limit %d: must be positive", config.RateLimit)
	}

	return config, nil
}
