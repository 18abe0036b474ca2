package config

import "fmt"

// ValidationError reports invalid static configuration. It is returned
// before any network activity can occur.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	return c.Model.Validate()
}

// Validate checks the API configuration. An empty base URL is rejected
// here so misconfiguration surfaces at construction, not on first request.
func (c APIConfig) Validate() error {
	if c.BaseURL == "" {
		return &ValidationError{Field: "api.base_url", Message: "is required"}
	}
	switch c.AuthType {
	case "", AuthBearer, AuthAPIKeyHeader, AuthBasic, AuthCustom:
	case AuthAPIKeyQuery:
		if c.AuthParam == "" {
			return &ValidationError{Field: "api.auth_param", Message: "is required for api_key_query auth"}
		}
	default:
		return &ValidationError{Field: "api.auth_type", Message: fmt.Sprintf("unknown auth type %q", c.AuthType)}
	}
	if c.Timeout < 0 {
		return &ValidationError{Field: "api.timeout", Message: "must not be negative"}
	}
	if c.MaxRetries < 0 {
		return &ValidationError{Field: "api.max_retries", Message: "must not be negative"}
	}
	if c.RetryDelay < 0 {
		return &ValidationError{Field: "api.retry_delay", Message: "must not be negative"}
	}
	if c.RateLimitRequests < 0 {
		return &ValidationError{Field: "api.rate_limit_requests", Message: "must not be negative"}
	}
	if c.RateLimitWindow < 0 {
		return &ValidationError{Field: "api.rate_limit_window", Message: "must not be negative"}
	}
	return nil
}

// Validate checks the model configuration.
func (c ModelConfig) Validate() error {
	switch c.Provider {
	case "", "anthropic", "openai", "ollama":
	default:
		return &ValidationError{Field: "model.provider", Message: fmt.Sprintf("unknown provider %q", c.Provider)}
	}
	if c.MaxTokens < 0 {
		return &ValidationError{Field: "model.max_tokens", Message: "must not be negative"}
	}
	return nil
}
