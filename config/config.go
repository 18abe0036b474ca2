package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// AuthType identifies how a credential is injected into outbound requests.
type AuthType string

const (
	// AuthBearer sends the credential as "Authorization: Bearer <key>".
	AuthBearer AuthType = "bearer"
	// AuthAPIKeyHeader sends the raw credential in the header named by AuthHeader.
	AuthAPIKeyHeader AuthType = "api_key"
	// AuthAPIKeyQuery appends the credential to every request's query
	// parameters under the name given by AuthParam.
	AuthAPIKeyQuery AuthType = "api_key_query"
	// AuthBasic sends the credential (a "user:password" pair) as HTTP basic
	// authorization.
	AuthBasic AuthType = "basic"
	// AuthCustom injects nothing; static Headers carry whatever is needed.
	AuthCustom AuthType = "custom"
)

// APIConfig describes the external data API that feeds the model.
// Durations are expressed in seconds to keep YAML files plain.
type APIConfig struct {
	BaseURL    string            `yaml:"base_url"`
	AuthType   AuthType          `yaml:"auth_type,omitempty"`
	APIKey     string            `yaml:"api_key,omitempty"`
	AuthHeader string            `yaml:"auth_header,omitempty"` // header name for api_key auth (default: Authorization)
	AuthParam  string            `yaml:"auth_param,omitempty"`  // query parameter name for api_key_query auth
	Headers    map[string]string `yaml:"headers,omitempty"`     // static headers attached to every request

	Timeout    int     `yaml:"timeout,omitempty"`     // per-request timeout in seconds (default: 30)
	MaxRetries int     `yaml:"max_retries,omitempty"` // retries after the first attempt (default: 3)
	RetryDelay float64 `yaml:"retry_delay,omitempty"` // base backoff in seconds (default: 1.0)

	RateLimitRequests int `yaml:"rate_limit_requests,omitempty"` // 0 disables client-side rate limiting
	RateLimitWindow   int `yaml:"rate_limit_window,omitempty"`   // sliding window in seconds (default: 60)
}

// ModelConfig describes the language model used for analysis.
type ModelConfig struct {
	Provider    string  `yaml:"provider,omitempty"` // anthropic, openai, or ollama
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	MaxTokens   int64   `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"` // OpenAI-compatible endpoint override
	Host        string  `yaml:"host,omitempty"`     // Ollama host; falls back to OLLAMA_HOST, then localhost
}

// MemoryConfig controls persistent conversation sessions.
type MemoryConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Path      string `yaml:"path,omitempty"`       // SQLite database file
	SessionID string `yaml:"session_id,omitempty"` // resume an existing session; generated when empty
}

// Config is the full application configuration.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Model  ModelConfig  `yaml:"model,omitempty"`
	Memory MemoryConfig `yaml:"memory,omitempty"`
}

// Default returns the configuration defaults applied underneath any
// loaded file.
func Default() *Config {
	return &Config{
		API: APIConfig{
			AuthType:        AuthBearer,
			AuthHeader:      "Authorization",
			Timeout:         30,
			MaxRetries:      3,
			RetryDelay:      1.0,
			RateLimitWindow: 60,
		},
		Model: ModelConfig{
			Provider:  "anthropic",
			Model:     "claude-3-5-sonnet-20241022",
			MaxTokens: 4000,
		},
		Memory: MemoryConfig{
			Path: "~/.apifeed/conversations.db",
		},
	}
}

// Load reads a YAML configuration file and merges it over the defaults.
// The result is validated before being returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(expandPath(path)) //#nosec 304 -- intentional file read for config
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	cfg.Memory.Path = expandPath(cfg.Memory.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigPath returns the default config file path.
// Can be overridden via the APIFEED_CONFIG environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("APIFEED_CONFIG"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.apifeed/config.yaml"
	}
	return filepath.Join(homeDir, ".apifeed", "config.yaml")
}

// Normalized returns a copy with unset optional fields replaced by their
// defaults, so hand-built configs behave like loaded ones.
func (c APIConfig) Normalized() APIConfig {
	if c.AuthType == "" {
		c.AuthType = AuthBearer
	}
	if c.AuthHeader == "" {
		c.AuthHeader = "Authorization"
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 1.0
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = 60
	}
	return c
}

// TimeoutDuration returns the per-request timeout.
func (c APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RetryDelayDuration returns the base backoff delay.
func (c APIConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay * float64(time.Second))
}

// RateLimitWindowDuration returns the sliding-window span.
func (c APIConfig) RateLimitWindowDuration() time.Duration {
	return time.Duration(c.RateLimitWindow) * time.Second
}

// Normalized returns a copy with unset optional fields replaced by their
// defaults.
func (c ModelConfig) Normalized() ModelConfig {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.Model == "" && c.Provider == "anthropic" {
		c.Model = "claude-3-5-sonnet-20241022"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4000
	}
	return c
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
