// Package llm defines the provider-neutral surface for text
// completion. Providers under llm/ implement Client and translate
// their SDK's failures into this package's Error type, so callers can
// switch providers without touching orchestration code.
package llm

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage builds a user turn.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage builds an assistant turn.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Request is a complete text completion request. Messages carries the
// full conversation so far; providers do not keep state between calls.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int64
	Temperature *float64
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is the model's completed turn.
type Response struct {
	Text       string
	StopReason string
	Usage      *Usage
}
