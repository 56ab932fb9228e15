// Package telegram delivers messages through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"jobalert/internal/transport"
	logx "jobalert/pkg/logx"
)

// Config configures the Bot API client.
type Config struct {
	Token string
	// APIURL overrides the Bot API base URL (local bot API server, tests).
	APIURL string
	// Timeout bounds each HTTP request to the Bot API.
	Timeout time.Duration
}

// Sender implements transport.Sender with telebot.
type Sender struct {
	bot *tele.Bot
	log logx.Logger
}

var _ transport.Sender = (*Sender)(nil)

// recipient addresses a chat by numeric id or @username.
type recipient string

func (r recipient) Recipient() string { return string(r) }

func New(cfg Config, log logx.Logger) (*Sender, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		URL:    strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Client: &http.Client{Timeout: timeout},
		// Sending only; never call getMe or poll.
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{bot: b, log: log.With(logx.String("comp", "telegram"))}, nil
}

// SendText sends text as one message and returns only once the request has
// finished. telebot has no context support, so Config.Timeout on the HTTP
// client is what bounds the attempt; ctx is checked before sending and
// reported when it expired during the attempt.
func (s *Sender) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chat := strings.TrimSpace(to.ChatID)
	if chat == "" {
		return transport.MessageRef{}, errors.New("telegram chat id is empty")
	}
	if err := ctx.Err(); err != nil {
		return transport.MessageRef{}, err
	}

	sendOpt := &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	}

	// Blocks until the request is done so the next chunk never overlaps it.
	msg, err := s.bot.Send(recipient(chat), text, sendOpt)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return transport.MessageRef{}, fmt.Errorf("%w: %v", cerr, err)
		}
		return transport.MessageRef{}, err
	}
	ref := transport.MessageRef{ChatID: chat}
	if msg != nil {
		ref.MessageID = msg.ID
	}
	return ref, nil
}
