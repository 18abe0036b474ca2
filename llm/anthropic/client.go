// Package anthropic implements llm.Client against Anthropic's
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/apifeed/apifeed/config"
	"github.com/apifeed/apifeed/llm"
)

// Client implements the llm.Client interface for Anthropic's API.
type Client struct {
	client      *anthropic.Client
	model       string
	maxTokens   int64
	temperature *float64
	logger      zerolog.Logger
}

// New creates a Client from model configuration. Model, max tokens and
// temperature become per-request defaults; a zero temperature is left
// to the API's own default.
func New(cfg config.ModelConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	cfg = cfg.Normalized()

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	var temp *float64
	if cfg.Temperature != 0 {
		t := cfg.Temperature
		temp = &t
	}

	return &Client{
		client:      &client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: temp,
		logger:      logger.With().Str("component", "anthropic").Logger(),
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
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	temp := req.Temperature
	if temp == nil {
		temp = c.temperature
	}

	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if temp != nil {
		params.Temperature = anthropic.Float(*temp)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, convertError(err)
	}

	var text strings.Builder
	for _, blockUnion := range message.Content {
		if block, ok := blockUnion.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(block.Text)
		}
	}

	usage := &llm.Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
	c.logger.Debug().
		Int64("input_tokens", usage.InputTokens).
		Int64("output_tokens", usage.OutputTokens).
		Str("stop_reason", string(message.StopReason)).
		Msg("completion finished")

	return &llm.Response{
		Text:       text.String(),
		StopReason: string(message.StopReason),
		Usage:      usage,
	}, nil
}

// convertError maps an SDK failure onto the provider-neutral taxonomy.
func convertError(err error) error {
	var apierr *anthropic.Error
	if !errors.As(err, &apierr) {
		return llm.NewProviderError("anthropic request failed", 0, err)
	}

	switch apierr.StatusCode {
	case http.StatusTooManyRequests:
		return llm.NewRateLimitError("anthropic rate limit exceeded", retryAfterOf(apierr), err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return llm.NewAuthenticationError("anthropic authentication failed", err)
	case http.StatusBadRequest:
		return llm.NewInvalidRequestError("anthropic rejected the request", err)
	default:
		return llm.NewProviderError("anthropic request failed", apierr.StatusCode, err)
	}
}

func retryAfterOf(apierr *anthropic.Error) *time.Duration {
	if apierr.Response == nil {
		return nil
	}
	secs, err := strconv.Atoi(apierr.Response.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}
