// Package ollama implements llm.Client against a local or remote
// Ollama daemon.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/apifeed/apifeed/config"
	"github.com/apifeed/apifeed/llm"
)

// Client implements the llm.Client interface for Ollama's API.
type Client struct {
	client      *api.Client
	model       string
	maxTokens   int64
	temperature *float64
	logger      zerolog.Logger
}

// New creates a Client from model configuration. An empty host falls
// back to the environment (OLLAMA_HOST or http://localhost:11434).
// No API key is involved; the daemon is assumed to be trusted.
func New(cfg config.ModelConfig, logger zerolog.Logger) (*Client, error) {
	cfg = cfg.Normalized()

	var client *api.Client
	if cfg.Host != "" {
		baseURL, err := parseHost(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid host: %w", err)
		}
		client = api.NewClient(baseURL, &http.Client{})
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
	}

	var temp *float64
	if cfg.Temperature != 0 {
		t := cfg.Temperature
		temp = &t
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: temp,
		logger:      logger.With().Str("component", "ollama").Logger(),
	}, nil
}

// parseHost parses a host string into a URL.
func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
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

	msgs := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, api.Message{Role: string(m.Role), Content: m.Content})
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   new(bool), // false for non-streaming
		Options:  make(map[string]interface{}),
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens > 0 {
		chatReq.Options["num_predict"] = int(maxTokens)
	}

	temp := req.Temperature
	if temp == nil {
		temp = c.temperature
	}
	if temp != nil {
		chatReq.Options["temperature"] = *temp
	}

	var chatResp api.ChatResponse
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		chatResp = resp
		return nil
	})
	if err != nil {
		return nil, convertError(err)
	}

	usage := &llm.Usage{
		InputTokens:  int64(chatResp.PromptEvalCount),
		OutputTokens: int64(chatResp.EvalCount),
	}
	c.logger.Debug().
		Int64("input_tokens", usage.InputTokens).
		Int64("output_tokens", usage.OutputTokens).
		Msg("completion finished")

	stopReason := "end_turn"
	if chatResp.Done {
		stopReason = "stop"
	}

	return &llm.Response{
		Text:       chatResp.Message.Content,
		StopReason: stopReason,
		Usage:      usage,
	}, nil
}

// convertError maps a daemon failure onto the provider-neutral
// taxonomy. Most local failures are plain connection errors.
func convertError(err error) error {
	var serr api.StatusError
	if !errors.As(err, &serr) {
		return llm.NewProviderError("ollama chat request failed", 0, err)
	}

	switch serr.StatusCode {
	case http.StatusTooManyRequests:
		return llm.NewRateLimitError("ollama rate limit exceeded", nil, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return llm.NewAuthenticationError("ollama authentication failed", err)
	case http.StatusBadRequest, http.StatusNotFound:
		return llm.NewInvalidRequestError("ollama rejected the request", err)
	default:
		return llm.NewProviderError("ollama chat request failed", serr.StatusCode, err)
	}
}
