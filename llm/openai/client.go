// Package openai implements llm.Client over the chat completions API,
// for OpenAI itself or any compatible gateway via a base URL override.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/apifeed/apifeed/config"
	"github.com/apifeed/apifeed/llm"
)

// OpenAI API errors don't directly expose retry-after headers.
// We'll use a default retry after duration for rate limits.
const defaultRetryAfter = 60 * time.Second

// Client implements the llm.Client interface for OpenAI's API.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int64
	temperature *float64
	logger      zerolog.Logger
}

// New creates a Client from model configuration. BaseURL switches the
// client to an OpenAI-compatible endpoint.
func New(cfg config.ModelConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	cfg = cfg.Normalized()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var temp *float64
	if cfg.Temperature != 0 {
		t := cfg.Temperature
		temp = &t
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: temp,
		logger:      logger.With().Str("component", "openai").Logger(),
	}, nil
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if req == nil {
		return nil, llm.NewInvalidRequestError("request is required", nil)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, llm.NewInvalidRequestError("model is required", nil)
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == llm.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens > 0 {
		chatReq.MaxTokens = int(maxTokens)
	}

	temp := req.Temperature
	if temp == nil {
		temp = c.temperature
	}
	if temp != nil {
		chatReq.Temperature = float32(*temp)
	}

	chatResp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertOpenAIError(err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, llm.NewProviderError("no choices in response", 0, nil)
	}

	choice := chatResp.Choices[0]
	usage := &llm.Usage{
		InputTokens:  int64(chatResp.Usage.PromptTokens),
		OutputTokens: int64(chatResp.Usage.CompletionTokens),
	}
	c.logger.Debug().
		Int64("input_tokens", usage.InputTokens).
		Int64("output_tokens", usage.OutputTokens).
		Str("finish_reason", string(choice.FinishReason)).
		Msg("completion finished")

	stopReason := "stop"
	if choice.FinishReason == openai.FinishReasonLength {
		stopReason = "max_tokens"
	}

	return &llm.Response{
		Text:       choice.Message.Content,
		StopReason: stopReason,
		Usage:      usage,
	}, nil
}

// convertOpenAIError converts OpenAI API errors to llm.Error types.
func convertOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return llm.NewProviderError("openai request failed", 0, err)
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusTooManyRequests:
		retryAfter := defaultRetryAfter
		return llm.NewRateLimitError(
			fmt.Sprintf("openai rate limit: %s", apiErr.Message),
			&retryAfter,
			err,
		)
	case http.StatusUnauthorized, http.StatusForbidden:
		return llm.NewAuthenticationError(
			fmt.Sprintf("openai authentication failed: %s", apiErr.Message),
			err,
		)
	case http.StatusBadRequest:
		return llm.NewInvalidRequestError(
			fmt.Sprintf("openai invalid request: %s", apiErr.Message),
			err,
		)
	default:
		return llm.NewProviderError(
			fmt.Sprintf("openai request failed: %s", apiErr.Message),
			apiErr.HTTPStatusCode,
			err,
		)
	}
}
