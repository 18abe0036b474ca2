package connector

import (
	"context"
	"time"

	"github.com/apifeed/apifeed/fetch"
	"github.com/apifeed/apifeed/llm"
	"github.com/apifeed/apifeed/pipeline"
)

// Converse runs one conversation turn. With a request, fresh data is
// fetched, transformed, and rendered into the user content before it
// enters the history; the model always sees the entire transcript.
// The user turn stays recorded even if the model call fails, so a
// retry carries the same context.
func (c *Connector) Converse(ctx context.Context, prompt string, req *fetch.Request) (*TurnResult, error) {
	content := prompt
	if req != nil {
		raw, err := c.fetcher.Fetch(ctx, *req)
		if err != nil {
			return nil, err
		}
		processed, err := c.applyChain(raw)
		if err != nil {
			return nil, err
		}
		content = pipeline.RenderForPrompt(prompt, processed)
	}

	c.mu.Lock()
	c.history.AppendUser(content)
	msgs := c.history.Messages()
	c.mu.Unlock()

	if err := c.persist(ctx, llm.NewUserMessage(content)); err != nil {
		return nil, err
	}

	resp, err := c.model.Complete(ctx, &llm.Request{Messages: msgs})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.history.AppendAssistant(resp.Text)
	length := c.history.Len()
	c.mu.Unlock()

	if err := c.persist(ctx, llm.NewAssistantMessage(resp.Text)); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("conversation_length", length).Msg("conversation turn finished")

	return &TurnResult{
		Response:           resp.Text,
		ConversationLength: length,
		Timestamp:          time.Now(),
	}, nil
}

func (c *Connector) persist(ctx context.Context, msg llm.Message) error {
	if c.store == nil {
		return nil
	}
	return c.store.AppendMessage(ctx, c.sessionID, msg)
}
