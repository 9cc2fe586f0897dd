package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"
)

// Sender posts text messages to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error
}

// Telegram rejects longer messages.
const maxMessageRunes = 4096

// BotSender sends messages through the Telegram Bot API. It also delivers
// due reminders for the dispatcher.
type BotSender struct {
	bot *telego.Bot
	log zerolog.Logger
}

// NewBotSender constructs a BotSender for token. An empty baseURL keeps the
// public Bot API server.
func NewBotSender(token, baseURL string, logger zerolog.Logger) (*BotSender, error) {
	opts := []telego.BotOption{telego.WithDiscardLogger()}
	if baseURL != "" {
		opts = append(opts, telego.WithAPIServer(strings.TrimRight(baseURL, "/")))
	}
	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &BotSender{
		bot: bot,
		log: logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// SendMessage posts text to a chat, optionally as a reply.
func (s *BotSender) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   clip(text, maxMessageRunes),
	}
	if replyTo != 0 {
		params.ReplyParameters = &telego.ReplyParameters{
			MessageID:                int(replyTo),
			AllowSendingWithoutReply: true,
		}
	}

	if _, err := s.bot.SendMessage(params); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

// Notify implements service.Notifier.
func (s *BotSender) Notify(ctx context.Context, chatID int64, text string) error {
	return s.SendMessage(ctx, chatID, text, 0)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
