package connector

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/apifeed/apifeed/fetch"
	"github.com/apifeed/apifeed/llm"
	"github.com/apifeed/apifeed/pipeline"
)

// defaultMaxConcurrent bounds batch fan-out when the caller passes no
// limit.
const defaultMaxConcurrent = 5

// BatchProcess fetches every request concurrently, transforms each
// result, and asks the model for one combined analysis of whatever
// succeeded. A failing endpoint is recorded, never fatal; the model is
// consulted even when every fetch failed. A model failure fails the
// whole batch.
func (c *Connector) BatchProcess(ctx context.Context, reqs []fetch.Request, analysisPrompt string, maxConcurrent int) (*BatchResult, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	c.logger.Debug().
		Int("endpoints", len(reqs)).
		Int("max_concurrent", maxConcurrent).
		Msg("starting batch")

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		combined = make(map[string]any, len(reqs))
		failures []BatchFailure
	)

	for _, req := range reqs {
		wg.Add(1)
		go func(req fetch.Request) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				failures = append(failures, BatchFailure{Endpoint: req.Path, Error: err.Error()})
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			data, err := c.fetchAndTransform(ctx, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn().Str("endpoint", req.Path).Err(err).Msg("batch endpoint failed")
				failures = append(failures, BatchFailure{Endpoint: req.Path, Error: err.Error()})
				return
			}
			combined[req.Path] = data
		}(req)
	}
	wg.Wait()

	prompt := pipeline.RenderForPrompt(analysisPrompt, combined)
	resp, err := c.model.Complete(ctx, &llm.Request{
		Messages: []llm.Message{llm.NewUserMessage(prompt)},
	})
	if err != nil {
		return nil, err
	}

	return &BatchResult{
		Analysis:            resp.Text,
		SuccessfulEndpoints: len(combined),
		FailedEndpoints:     len(failures),
		Failures:            failures,
		DataSummary:         pipeline.Summarize(combined),
		Timestamp:           time.Now(),
	}, nil
}

func (c *Connector) fetchAndTransform(ctx context.Context, req fetch.Request) (any, error) {
	raw, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.applyChain(raw)
}
