// Package pipeline transforms fetched data before it reaches a model
// prompt. A Chain runs registered processors in order, Summarize
// produces a compact structural description of arbitrary data, and
// RenderForPrompt embeds a bounded rendering of the data into the
// prompt template.
package pipeline

import "fmt"

// Processor transforms one piece of data into another. Implementations
// must not retain or mutate their input after returning.
type Processor interface {
	Process(data any) (any, error)
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc func(any) (any, error)

func (f ProcessorFunc) Process(data any) (any, error) {
	return f(data)
}

// Error reports a processor failure. Stage is the zero-based index of
// the processor that failed.
type Error struct {
	Stage int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("processor at stage %d failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Chain is an ordered list of processors applied back to back.
type Chain struct {
	procs []Processor
}

// NewChain builds a chain that applies procs in the given order.
func NewChain(procs ...Processor) *Chain {
	return &Chain{procs: procs}
}

// Append adds a processor to the end of the chain.
func (c *Chain) Append(p Processor) {
	c.procs = append(c.procs, p)
}

// Len returns the number of registered processors.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.procs)
}

// Apply runs the chain over data. Each stage receives the previous
// stage's output. The first failure aborts the chain; no partial or raw
// data is returned in that case.
func (c *Chain) Apply(data any) (any, error) {
	if c == nil {
		return data, nil
	}
	for i, p := range c.procs {
		out, err := p.Process(data)
		if err != nil {
			return nil, &Error{Stage: i, Err: err}
		}
		data = out
	}
	return data, nil
}
