// Package conversations maintains multi-turn conversation state: an
// in-memory transcript, and an optional SQLite-backed store so a
// session can be resumed across processes.
package conversations

import "github.com/apifeed/apifeed/llm"

// History is an append-only transcript of conversation turns. It is
// not safe for concurrent use; callers serialize access.
type History struct {
	msgs []llm.Message
}

// NewHistory returns an empty transcript.
func NewHistory() *History {
	return &History{}
}

// AppendUser records a user turn.
func (h *History) AppendUser(content string) {
	h.msgs = append(h.msgs, llm.NewUserMessage(content))
}

// AppendAssistant records an assistant turn.
func (h *History) AppendAssistant(content string) {
	h.msgs = append(h.msgs, llm.NewAssistantMessage(content))
}

// Messages returns the recorded turns in order. The slice is a copy;
// mutating it does not affect the transcript.
func (h *History) Messages() []llm.Message {
	out := make([]llm.Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Len returns the number of recorded turns.
func (h *History) Len() int {
	return len(h.msgs)
}

// Clear drops all turns.
func (h *History) Clear() {
	h.msgs = nil
}

// Replace swaps in a stored transcript when resuming a session.
func (h *History) Replace(msgs []llm.Message) {
	h.msgs = append([]llm.Message(nil), msgs...)
}
