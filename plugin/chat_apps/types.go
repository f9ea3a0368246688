// Package chat_apps provides chat platform integration for the companion.
// Telegram is the only wired platform; the types keep the door open for
// others without touching the engine.
package chat_apps

import "time"

// Platform represents a supported chat platform.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
)

// IncomingMessage is one inbound user message, platform-agnostic.
type IncomingMessage struct {
	Platform       Platform
	PlatformUserID string
	PlatformChatID string
	Name           string
	Username       string
	Content        string
	Timestamp      time.Time
}

// TurnReply is what the engine hands back for delivery: one or more
// messages sent in order, plus an optional reaction emoji.
type TurnReply struct {
	Messages []string
	Reaction string
}
