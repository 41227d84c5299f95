package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/domain"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramLogger posts operational alerts to forum topics of one chat.
// A nil *TelegramLogger is valid and drops everything.
type TelegramLogger struct {
	sender messageSender
	cfg    *config.Config
}

// NewTelegramLogger returns nil when Telegram logging is not configured.
func NewTelegramLogger(cfg *config.Config) (*TelegramLogger, error) {
	if !cfg.TelegramLoggingEnabled() {
		return nil, nil
	}
	b, err := bot.New(cfg.LogTelegramBotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramLogger{sender: b, cfg: cfg}, nil
}

type LogType string

const (
	LogTypeSendFailure  LogType = "sendFailure"
	LogTypeSessionReset LogType = "sessionReset"
)

func (l *TelegramLogger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.getTopicID(logType)
	if topicID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, part := range SplitMessage(message, config.MaxTelegramMessageLen) {
		_, err := l.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          l.cfg.LogTelegramChatID,
			Text:            part,
			ParseMode:       models.ParseModeMarkdownV1,
			MessageThreadID: topicID,
		})
		if err != nil {
			slog.Error("failed to send telegram log", "type", logType, "error", err)
			return
		}
	}
}

// LogSendFailure reports a failed outgoing chat message with its error kind.
func (l *TelegramLogger) LogSendFailure(clientID string, err error) {
	msg := fmt.Sprintf("❌ *Send failed*\n\n*Client:* `%s`\n*Kind:* %s\n*Error:* %s\n*Time:* %s",
		clientID, errorKind(err), escapeMarkdown(err.Error()), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeSendFailure, msg)
}

func (l *TelegramLogger) LogSessionReset(clientID string) {
	msg := fmt.Sprintf("🔄 *Session reset*\n\n*Client:* `%s`", clientID)
	l.Log(LogTypeSessionReset, msg)
}

func (l *TelegramLogger) getTopicID(logType LogType) int {
	switch logType {
	case LogTypeSendFailure:
		return l.cfg.LogTopicSendFailure
	case LogTypeSessionReset:
		return l.cfg.LogTopicSessionReset
	default:
		return 0
	}
}

// markdownV1Escaper escapes text placed outside an entity. Telegram rejects the whole
// message when one of these is left unbalanced.
var markdownV1Escaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

func escapeMarkdown(s string) string {
	return markdownV1Escaper.Replace(s)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenUnavailable):
		return "TokenUnavailable"
	case errors.Is(err, domain.ErrConversationCreateFailed):
		return "ConversationCreateFailed"
	case errors.Is(err, domain.ErrMessageSendFailed):
		return "MessageSendFailed"
	case errors.Is(err, domain.ErrBotResponseTimeout):
		return "BotResponseTimeout"
	default:
		return "Unknown"
	}
}
