package connector

import (
	"context"
	"time"

	"github.com/apifeed/apifeed/fetch"
	"github.com/apifeed/apifeed/llm"
	"github.com/apifeed/apifeed/pipeline"
)

// QueryWithData fetches from one endpoint, runs the processor chain,
// renders the result into the prompt, and asks the model for an
// analysis. Failures from any stage propagate unmodified.
func (c *Connector) QueryWithData(ctx context.Context, prompt string, req fetch.Request, includeRaw bool) (*QueryResult, error) {
	c.logger.Debug().Str("endpoint", req.Path).Msg("querying with data")

	raw, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	processed, err := c.applyChain(raw)
	if err != nil {
		return nil, err
	}

	enhanced := pipeline.RenderForPrompt(prompt, processed)
	resp, err := c.model.Complete(ctx, &llm.Request{
		Messages: []llm.Message{llm.NewUserMessage(enhanced)},
	})
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Response:    resp.Text,
		Prompt:      prompt,
		Endpoint:    req.Path,
		DataSummary: pipeline.Summarize(processed),
		Timestamp:   time.Now(),
	}
	if includeRaw {
		result.RawData = raw
		result.ProcessedData = processed
	}
	return result, nil
}
