// Package llm adapts chat-completion providers to draft.Generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Counsel/internal/app/draft"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

var ErrNotConfigured = errors.New("llm: no API key configured")

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// The pipeline owns the deadline.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	log.Info().Str("module", "adapters.llm").Str("model", cfg.Model).Str("base_url", cfg.BaseURL).Msg("openai generator ready")
	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, turns []draft.Turn) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case draft.TurnSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case draft.TurnAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", draft.ErrEmptyOutput
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", draft.ErrEmptyOutput
	}
	return text, nil
}

// Unconfigured stands in when no API key is set; every request fails.
func Unconfigured() draft.Generator {
	return draft.GeneratorFunc(func(context.Context, []draft.Turn) (string, error) {
		return "", ErrNotConfigured
	})
}
