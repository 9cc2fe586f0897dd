package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// OpenAIClient talks to the Chat Completions API through the official SDK.
type OpenAIClient struct {
	client openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIClient constructs a new OpenAIClient. An empty baseURL keeps the
// SDK default.
func NewOpenAIClient(apiKey, baseURL, model string, logger zerolog.Logger) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
		log:    logger.With().Str("component", "llm").Str("backend", "openai").Logger(),
	}
}

// ReminderTitle asks the model for a short title for note.
func (c *OpenAIClient) ReminderTitle(ctx context.Context, note string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(note)),
		},
		MaxTokens:   openai.Int(32),
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	c.log.Debug().Int64("total_tokens", resp.Usage.TotalTokens).Msg("reminder title generated")
	return cleanTitle(resp.Choices[0].Message.Content)
}
