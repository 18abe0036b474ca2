// Package connector orchestrates the full flow: fetch data from a
// configured API, run it through the processor chain, render it into a
// bounded prompt, and hand that to a language model. It supports
// one-shot queries, concurrent batch analysis, and stateful
// conversations.
package connector

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apifeed/apifeed/config"
	"github.com/apifeed/apifeed/conversations"
	"github.com/apifeed/apifeed/fetch"
	"github.com/apifeed/apifeed/llm"
	"github.com/apifeed/apifeed/llm/anthropic"
	"github.com/apifeed/apifeed/llm/ollama"
	"github.com/apifeed/apifeed/llm/openai"
	"github.com/apifeed/apifeed/pipeline"
)

// Connector ties one API to one model. A single logical flow runs per
// connector; BatchProcess is the only internal fan-out.
type Connector struct {
	apiCfg   config.APIConfig
	modelCfg config.ModelConfig
	fetcher  *fetch.Client
	model    llm.Client
	logger   zerolog.Logger

	mu      sync.Mutex
	chain   *pipeline.Chain
	history *conversations.History

	store     *conversations.Store
	sessionID string
}

type options struct {
	logger     *zerolog.Logger
	client     llm.Client
	processors []pipeline.Processor
	store      *conversations.Store
	sessionID  string
}

// Option configures optional connector behavior.
type Option func(*options)

// WithLogger attaches a logger. Without it the connector is silent.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithClient injects a model client, bypassing provider construction.
func WithClient(client llm.Client) Option {
	return func(o *options) { o.client = client }
}

// WithProcessors sets the initial processor chain.
func WithProcessors(procs ...pipeline.Processor) Option {
	return func(o *options) { o.processors = procs }
}

// WithStore persists conversation turns to the given store. An empty
// sessionID starts a fresh session under a generated ID.
func WithStore(store *conversations.Store, sessionID string) Option {
	return func(o *options) {
		o.store = store
		o.sessionID = sessionID
	}
}

// New validates both configurations and builds the connector. A broken
// configuration fails here, before any network traffic.
func New(apiCfg config.APIConfig, modelCfg config.ModelConfig, opts ...Option) (*Connector, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	base := zerolog.Nop()
	if o.logger != nil {
		base = *o.logger
	}
	logger := base.With().Str("component", "connector").Logger()

	apiCfg = apiCfg.Normalized()
	if err := apiCfg.Validate(); err != nil {
		return nil, err
	}
	modelCfg = modelCfg.Normalized()
	if err := modelCfg.Validate(); err != nil {
		return nil, err
	}

	fetcher, err := fetch.New(apiCfg, base)
	if err != nil {
		return nil, err
	}

	model := o.client
	if model == nil {
		model, err = NewModelClient(modelCfg, base)
		if err != nil {
			return nil, err
		}
	}

	c := &Connector{
		apiCfg:    apiCfg,
		modelCfg:  modelCfg,
		fetcher:   fetcher,
		model:     model,
		logger:    logger,
		chain:     pipeline.NewChain(o.processors...),
		history:   conversations.NewHistory(),
		store:     o.store,
		sessionID: o.sessionID,
	}

	if c.store != nil {
		if err := c.resumeSession(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewModelClient builds a provider client from model configuration.
func NewModelClient(cfg config.ModelConfig, logger zerolog.Logger) (llm.Client, error) {
	cfg = cfg.Normalized()
	switch cfg.Provider {
	case "anthropic":
		return anthropic.New(cfg, logger)
	case "openai":
		return openai.New(cfg, logger)
	case "ollama":
		return ollama.New(cfg, logger)
	default:
		return nil, &config.ValidationError{
			Field:   "model.provider",
			Message: fmt.Sprintf("unknown provider %q", cfg.Provider),
		}
	}
}

// resumeSession ensures the session row exists and loads any turns a
// previous process recorded under it.
func (c *Connector) resumeSession() error {
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}

	ctx := context.Background()
	if err := c.store.EnsureSession(ctx, c.sessionID, ""); err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	msgs, err := c.store.Messages(ctx, c.sessionID)
	if err != nil {
		return fmt.Errorf("load session history: %w", err)
	}
	if len(msgs) > 0 {
		c.history.Replace(msgs)
		c.logger.Info().
			Str("session_id", c.sessionID).
			Int("turns", len(msgs)).
			Msg("resumed conversation session")
	}
	return nil
}

// SessionID returns the active persistent session ID, empty when no
// store is configured.
func (c *Connector) SessionID() string {
	if c.store == nil {
		return ""
	}
	return c.sessionID
}

// History returns a copy of the conversation so far.
func (c *Connector) History() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Messages()
}

// ClearConversation drops the in-memory transcript and, when a store
// is configured, the persisted turns of the session.
func (c *Connector) ClearConversation(ctx context.Context) error {
	c.mu.Lock()
	c.history.Clear()
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx, c.sessionID)
}

// SetProcessors replaces the processor chain.
func (c *Connector) SetProcessors(procs ...pipeline.Processor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chain = pipeline.NewChain(procs...)
}

// AddProcessor appends a processor to the chain.
func (c *Connector) AddProcessor(p pipeline.Processor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chain.Append(p)
}

// Close releases the fetcher's pooled connections.
func (c *Connector) Close() {
	c.fetcher.Close()
}

// applyChain runs the current processor chain over data.
func (c *Connector) applyChain(data any) (any, error) {
	c.mu.Lock()
	chain := c.chain
	c.mu.Unlock()
	return chain.Apply(data)
}
