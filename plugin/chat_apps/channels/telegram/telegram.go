// Package telegram implements the Telegram Bot channel over long polling.
package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/akihq/aki/plugin/chat_apps"
	"github.com/akihq/aki/plugin/chat_apps/channels"
)

const (
	pollTimeoutSeconds = 30

	// Pacing for multi-message replies: a typing pause scaled to message
	// length, so three messages land like three texts, not a burst.
	pacingPerRune = 30 * time.Millisecond
	pacingMax     = 2500 * time.Millisecond
)

// fallbackLine is sent when the turn handler fails. The user gets an
// in-character line, not an error dump.
const fallbackLine = "ugh, my head's fuzzy right now. say that again in a bit?"

// Config holds configuration for the Telegram channel.
type Config struct {
	BotToken string
}

// Channel implements channels.ChatChannel for the Telegram Bot API.
type Channel struct {
	bot *tgbotapi.BotAPI
}

// NewChannel creates a Telegram channel.
func NewChannel(config *Config) (*Channel, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Telegram bot")
	}
	slog.Info("telegram channel ready", "bot", bot.Self.UserName)
	return &Channel{bot: bot}, nil
}

func (c *Channel) Name() chat_apps.Platform {
	return chat_apps.PlatformTelegram
}

// Listen long-polls for updates and routes each text message through the
// handler. Returns when ctx is cancelled.
func (c *Channel) Listen(ctx context.Context, handler channels.TurnHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := c.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg, err := parseUpdate(update)
			if err != nil {
				continue
			}
			c.handleTurn(ctx, msg, handler)
		}
	}
}

func (c *Channel) handleTurn(ctx context.Context, msg *chat_apps.IncomingMessage, handler channels.TurnHandler) {
	reply, err := handler(ctx, msg)
	if err != nil {
		slog.Error("turn failed", "platform_user_id", msg.PlatformUserID, "error", err)
		if sendErr := c.SendMessages(ctx, msg.PlatformChatID, []string{fallbackLine}); sendErr != nil {
			slog.Error("failed to send fallback", "error", sendErr)
		}
		return
	}

	if err := c.SendMessages(ctx, msg.PlatformChatID, reply.Messages); err != nil {
		slog.Error("failed to deliver reply", "platform_user_id", msg.PlatformUserID, "error", err)
		return
	}
	if reply.Reaction != "" {
		if err := c.SendReaction(ctx, msg.PlatformChatID, reply.Reaction); err != nil {
			slog.Warn("failed to deliver reaction", "error", err)
		}
	}
}

// SendMessages sends each message after a typing pause proportional to its
// length.
func (c *Channel) SendMessages(ctx context.Context, platformChatID string, messages []string) error {
	chatID, err := strconv.ParseInt(platformChatID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid chat id: %s", platformChatID)
	}

	for _, text := range messages {
		if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
			slog.Debug("typing action failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pacingDelay(text)):
		}
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			return errors.Wrap(err, "failed to send message")
		}
	}
	return nil
}

// SendReaction delivers the emoji as its own tiny message. The Bot API
// library in use has no native message-reaction call.
func (c *Channel) SendReaction(ctx context.Context, platformChatID string, emoji string) error {
	return c.SendMessages(ctx, platformChatID, []string{emoji})
}

func (c *Channel) Close() error {
	c.bot.StopReceivingUpdates()
	return nil
}

func parseUpdate(update tgbotapi.Update) (*chat_apps.IncomingMessage, error) {
	tgMsg := update.Message
	if tgMsg == nil {
		tgMsg = update.EditedMessage
	}
	if tgMsg == nil || tgMsg.From == nil || tgMsg.Text == "" {
		return nil, channels.ErrInvalidPayload
	}

	name := tgMsg.From.FirstName
	if tgMsg.From.LastName != "" {
		name += " " + tgMsg.From.LastName
	}

	return &chat_apps.IncomingMessage{
		Platform:       chat_apps.PlatformTelegram,
		PlatformUserID: strconv.FormatInt(tgMsg.From.ID, 10),
		PlatformChatID: strconv.FormatInt(tgMsg.Chat.ID, 10),
		Name:           name,
		Username:       tgMsg.From.UserName,
		Content:        tgMsg.Text,
		Timestamp:      time.Unix(int64(tgMsg.Date), 0),
	}, nil
}

func pacingDelay(text string) time.Duration {
	d := time.Duration(len([]rune(text))) * pacingPerRune
	if d > pacingMax {
		return pacingMax
	}
	return d
}
