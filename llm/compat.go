package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// CompatClient talks to any OpenAI-compatible endpoint (local gateways,
// DeepSeek, Ollama and similar) through go-openai.
type CompatClient struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewCompatClient constructs a new CompatClient.
func NewCompatClient(apiKey, baseURL, model string, logger zerolog.Logger) *CompatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &CompatClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    logger.With().Str("component", "llm").Str("backend", "compat").Logger(),
	}
}

// ReminderTitle asks the model for a short title for note.
func (c *CompatClient) ReminderTitle(ctx context.Context, note string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(note)},
		},
		MaxTokens:   32,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("call llm: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	c.log.Debug().Int("total_tokens", resp.Usage.TotalTokens).Msg("reminder title generated")
	return cleanTitle(resp.Choices[0].Message.Content)
}
