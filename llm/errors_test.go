package llm

import (
	"errors"
	"testing"
	"time"
)

func TestIsRateLimitError(t *testing.T) {
	err := NewRateLimitError("rate limit exceeded", nil, nil)
	if !IsRateLimitError(err) {
		t.Error("Expected IsRateLimitError to return true for rate limit error")
	}

	regularErr := NewProviderError("some error", 500, nil)
	if IsRateLimitError(regularErr) {
		t.Error("Expected IsRateLimitError to return false for non-rate-limit error")
	}
}

func TestIsAuthenticationError(t *testing.T) {
	err := NewAuthenticationError("bad api key", nil)
	if !IsAuthenticationError(err) {
		t.Error("Expected IsAuthenticationError to return true for authentication error")
	}
	if err.Retryable {
		t.Error("Expected authentication errors to be non-retryable")
	}

	regularErr := NewInvalidRequestError("bad request", nil)
	if IsAuthenticationError(regularErr) {
		t.Error("Expected IsAuthenticationError to return false for non-auth error")
	}
}

func TestIsRetryableError(t *testing.T) {
	retryableErr := NewRateLimitError("rate limit", nil, nil)
	if !IsRetryableError(retryableErr) {
		t.Error("Expected IsRetryableError to return true for retryable error")
	}

	serverErr := NewProviderError("upstream down", 503, nil)
	if !IsRetryableError(serverErr) {
		t.Error("Expected IsRetryableError to return true for 5xx provider error")
	}

	clientErr := NewInvalidRequestError("bad request", nil)
	if IsRetryableError(clientErr) {
		t.Error("Expected IsRetryableError to return false for invalid request error")
	}
}

func TestExtractRetryAfter(t *testing.T) {
	retryAfter := 5 * time.Minute
	err := NewRateLimitError("rate limit", &retryAfter, nil)
	extracted := ExtractRetryAfter(err)
	if extracted == nil {
		t.Fatal("Expected non-nil retry after")
	}
	if *extracted != retryAfter {
		t.Errorf("Expected retry after %v, got %v", retryAfter, *extracted)
	}

	regularErr := NewProviderError("some error", 500, nil)
	if ExtractRetryAfter(regularErr) != nil {
		t.Error("Expected nil retry after for non-rate-limit error")
	}
}

func TestErrorUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := NewProviderError("wrapped", 502, originalErr)
	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Expected error to unwrap to original error")
	}
}
