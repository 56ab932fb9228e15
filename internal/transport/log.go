package transport

import (
	"context"
	"sync"

	logx "jobalert/pkg/logx"
)

// LogSender writes messages to the log instead of delivering them.
// It backs dry runs.
type LogSender struct {
	log logx.Logger

	mu   sync.Mutex
	seq  int
	sent []string
}

func NewLogSender(log logx.Logger) *LogSender {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSender{log: log.With(logx.String("comp", "transport.log"))}
}

func (s *LogSender) SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return MessageRef{}, err
	}
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.sent = append(s.sent, text)
	s.mu.Unlock()

	mode := ""
	if opt != nil {
		mode = opt.ParseMode
	}
	s.log.Info("dry run message",
		logx.String("chat_id", to.ChatID),
		logx.Int("message_id", id),
		logx.String("parse_mode", mode),
		logx.String("text", text),
	)
	return MessageRef{ChatID: to.ChatID, MessageID: id}, nil
}

// Sent returns a copy of every text passed to SendText.
func (s *LogSender) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}
