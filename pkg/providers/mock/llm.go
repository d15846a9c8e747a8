package mock

import (
	"context"
	"strings"
	"time"

	"github.com/palinopr/leadflow/pkg/llm"
)

type LLMAdapter struct {
	cfg LLMConfig
}

type LLMConfig struct {
	// ResponseText forces a fixed reply. When empty the adapter echoes the
	// instruction's target message, which keeps scripted demos coherent.
	ResponseText string
	Err          error
	// Delay makes Generate block, so context deadlines can be exercised.
	Delay time.Duration
}

func NewLLMAdapter(cfg LLMConfig) *LLMAdapter {
	return &LLMAdapter{cfg: cfg}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

func (a *LLMAdapter) Generate(ctx context.Context, input llm.Context) (llm.Response, error) {
	if a.cfg.Delay > 0 {
		select {
		case <-time.After(a.cfg.Delay):
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		}
	}
	if a.cfg.Err != nil {
		return llm.Response{}, a.cfg.Err
	}
	text := a.cfg.ResponseText
	if text == "" {
		text = echoedMessage(input)
	}
	if text == "" {
		text = "mock response"
	}
	return llm.Response{Text: text, FinishReason: "stop"}, nil
}

func echoedMessage(input llm.Context) string {
	for _, m := range input.Messages {
		if m["role"] != "system" {
			continue
		}
		content, _ := m["content"].(string)
		if idx := strings.LastIndex(content, "Message: "); idx >= 0 {
			return strings.TrimSpace(content[idx+len("Message: "):])
		}
	}
	return ""
}
