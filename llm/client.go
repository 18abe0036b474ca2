package llm

import "context"

// Client is the surface a model provider implements. The request
// carries the full message list; the reply is one completed turn.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}
