package llm

import "context"

// Context is the provider-neutral prompt: a system framing plus the
// conversation turns, each as a role/content map.
type Context struct {
	Messages []map[string]any
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Response struct {
	Text         string
	Tokens       int
	Usage        Usage
	FinishReason string
}

// LLMAdapter renders a reply for one turn. Adapters translate the neutral
// Context into their provider's wire format and back.
type LLMAdapter interface {
	Generate(ctx context.Context, input Context) (Response, error)
	Name() string
}

// SystemMessage builds the leading instruction message.
func SystemMessage(text string) map[string]any {
	return map[string]any{"role": "system", "content": text}
}

// UserMessage builds a lead-authored turn.
func UserMessage(text string) map[string]any {
	return map[string]any{"role": "user", "content": text}
}

// AssistantMessage builds an agent-authored turn.
func AssistantMessage(text string) map[string]any {
	return map[string]any{"role": "assistant", "content": text}
}
