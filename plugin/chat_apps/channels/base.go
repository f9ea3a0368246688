// Package channels defines the channel interface chat platforms implement.
package channels

import (
	"context"

	"github.com/pkg/errors"

	"github.com/akihq/aki/plugin/chat_apps"
)

// ErrInvalidPayload is returned when an inbound update cannot be parsed.
var ErrInvalidPayload = errors.New("invalid payload")

// TurnHandler processes one inbound message and returns the reply to
// deliver. The channel owns delivery; the handler owns everything else.
type TurnHandler func(ctx context.Context, msg *chat_apps.IncomingMessage) (*chat_apps.TurnReply, error)

// ChatChannel is the interface all chat platform integrations implement.
type ChatChannel interface {
	// Name returns the platform name.
	Name() chat_apps.Platform

	// Listen polls the platform for inbound messages and routes each
	// through the handler until ctx is cancelled.
	Listen(ctx context.Context, handler TurnHandler) error

	// SendMessages delivers messages to a chat, in order, with natural
	// pacing. Used by the turn path and by the intent sweep.
	SendMessages(ctx context.Context, platformChatID string, messages []string) error

	// SendReaction delivers a lightweight emoji reaction.
	SendReaction(ctx context.Context, platformChatID string, emoji string) error

	// Close releases platform resources.
	Close() error
}
