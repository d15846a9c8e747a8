package ollama

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	llmx "github.com/palinopr/leadflow/pkg/llm"
)

// Adapter drives a local Ollama model through langchaingo.
type Adapter struct {
	cfg   Config
	model llms.Model
}

type Config struct {
	ServerURL   string
	Model       string
	Temperature float64
}

func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.ServerURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &Adapter{cfg: cfg, model: model}, nil
}

func (a *Adapter) Name() string { return "ollama" }

func (a *Adapter) Generate(ctx context.Context, input llmx.Context) (llmx.Response, error) {
	msgs, err := toMessageContent(input)
	if err != nil {
		return llmx.Response{}, err
	}
	var callOpts []llms.CallOption
	if a.cfg.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(a.cfg.Temperature))
	}
	resp, err := a.model.GenerateContent(ctx, msgs, callOpts...)
	if err != nil {
		return llmx.Response{}, fmt.Errorf("ollama generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llmx.Response{}, fmt.Errorf("ollama generate: empty response")
	}
	choice := resp.Choices[0]
	return llmx.Response{
		Text:         choice.Content,
		FinishReason: choice.StopReason,
	}, nil
}

func toMessageContent(input llmx.Context) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(input.Messages))
	for _, m := range input.Messages {
		role, _ := m["role"].(string)
		content, _ := m["content"].(string)
		var msgType llms.ChatMessageType
		switch role {
		case "system":
			msgType = llms.ChatMessageTypeSystem
		case "user":
			msgType = llms.ChatMessageTypeHuman
		case "assistant":
			msgType = llms.ChatMessageTypeAI
		default:
			return nil, fmt.Errorf("unknown message role %q", role)
		}
		out = append(out, llms.TextParts(msgType, content))
	}
	return out, nil
}
