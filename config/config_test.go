package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_Values(t *testing.T) {
	cfg := Default()

	if cfg.API.AuthType != AuthBearer {
		t.Errorf("Expected default auth type %q, got %q", AuthBearer, cfg.API.AuthType)
	}
	if cfg.API.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", cfg.API.Timeout)
	}
	if cfg.API.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.API.MaxRetries)
	}
	if cfg.API.RetryDelay != 1.0 {
		t.Errorf("Expected default retry delay 1.0, got %f", cfg.API.RetryDelay)
	}
	if cfg.API.RateLimitWindow != 60 {
		t.Errorf("Expected default rate limit window 60, got %d", cfg.API.RateLimitWindow)
	}
	if cfg.Model.Provider != "anthropic" {
		t.Errorf("Expected default provider anthropic, got %q", cfg.Model.Provider)
	}
	if cfg.Model.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("Expected default model claude-3-5-sonnet-20241022, got %q", cfg.Model.Model)
	}
	if cfg.Model.MaxTokens != 4000 {
		t.Errorf("Expected default max tokens 4000, got %d", cfg.Model.MaxTokens)
	}
}

func TestAPIConfig_Validate_EmptyBaseURL(t *testing.T) {
	cfg := APIConfig{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error for empty base URL, got nil")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if verr.Field != "api.base_url" {
		t.Errorf("Expected field api.base_url, got %q", verr.Field)
	}
}

func TestAPIConfig_Validate_QueryAuthRequiresParam(t *testing.T) {
	cfg := APIConfig{
		BaseURL:  "https://api.test.com",
		AuthType: AuthAPIKeyQuery,
		APIKey:   "secret",
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for api_key_query without auth_param, got nil")
	}

	cfg.AuthParam = "appid"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config with auth_param set, got %v", err)
	}
}

func TestAPIConfig_Validate_UnknownAuthType(t *testing.T) {
	cfg := APIConfig{
		BaseURL:  "https://api.test.com",
		AuthType: "oauth-dance",
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for unknown auth type, got nil")
	}
}

func TestAPIConfig_Normalized_FillsDefaults(t *testing.T) {
	cfg := APIConfig{BaseURL: "https://api.test.com"}.Normalized()

	if cfg.AuthType != AuthBearer {
		t.Errorf("Expected normalized auth type %q, got %q", AuthBearer, cfg.AuthType)
	}
	if cfg.AuthHeader != "Authorization" {
		t.Errorf("Expected normalized auth header Authorization, got %q", cfg.AuthHeader)
	}
	if cfg.TimeoutDuration() != 30*time.Second {
		t.Errorf("Expected normalized timeout 30s, got %v", cfg.TimeoutDuration())
	}
	if cfg.RetryDelayDuration() != time.Second {
		t.Errorf("Expected normalized retry delay 1s, got %v", cfg.RetryDelayDuration())
	}
}

func TestAPIConfig_Normalized_KeepsZeroMaxRetries(t *testing.T) {
	cfg := APIConfig{BaseURL: "https://api.test.com"}.Normalized()

	// Zero retries is a legitimate setting, not an unset field.
	if cfg.MaxRetries != 0 {
		t.Errorf("Expected max retries to stay 0, got %d", cfg.MaxRetries)
	}
}

func TestModelConfig_Validate_UnknownProvider(t *testing.T) {
	cfg := ModelConfig{Provider: "bard"}

	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for unknown provider, got nil")
	}
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
api:
  base_url: https://api.example.com
  auth_type: api_key
  api_key: sk-test
  auth_header: X-Api-Key
  timeout: 10
  rate_limit_requests: 5
model:
  api_key: sk-model
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("Expected base URL from file, got %q", cfg.API.BaseURL)
	}
	if cfg.API.AuthType != AuthAPIKeyHeader {
		t.Errorf("Expected auth type api_key, got %q", cfg.API.AuthType)
	}
	if cfg.API.AuthHeader != "X-Api-Key" {
		t.Errorf("Expected auth header X-Api-Key, got %q", cfg.API.AuthHeader)
	}
	if cfg.API.Timeout != 10 {
		t.Errorf("Expected timeout 10 from file, got %d", cfg.API.Timeout)
	}
	if cfg.API.RateLimitRequests != 5 {
		t.Errorf("Expected rate limit requests 5 from file, got %d", cfg.API.RateLimitRequests)
	}
	// Defaults survive where the file is silent.
	if cfg.API.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.API.MaxRetries)
	}
	if cfg.Model.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("Expected default model to survive merge, got %q", cfg.Model.Model)
	}
	if cfg.Model.APIKey != "sk-model" {
		t.Errorf("Expected model api key from file, got %q", cfg.Model.APIKey)
	}
}

func TestLoad_InvalidFileFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
api:
  base_url: ""
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for empty base_url, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing config file, got nil")
	}
}
