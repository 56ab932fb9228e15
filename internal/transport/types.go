// Package transport defines the delivery boundary used by the notifier.
package transport

import "context"

// ChatTarget is a destination chat. ChatID is either a numeric chat id
// ("-100123456") or a public channel username ("@jobs").
type ChatTarget struct {
	ChatID   string
	ThreadID int // telegram forum topic thread id (0 if none)
}

type MessageRef struct {
	ChatID    string
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers one text message. Implementations must not split text;
// chunking is the caller's job.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
