package notifier

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"jobalert/internal/transport"
	logx "jobalert/pkg/logx"
	"jobalert/pkg/tgui"
)

// Dispatcher delivers message chunks to one chat, one at a time.
type Dispatcher struct {
	sender  transport.Sender
	target  transport.ChatTarget
	cfg     Config
	limiter *rate.Limiter
	log     logx.Logger
}

// New returns a dispatcher; zero config fields take their defaults.
func New(cfg Config, sender transport.Sender, target transport.ChatTarget, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if strings.TrimSpace(cfg.ParseMode) == "" {
		cfg.ParseMode = "HTML"
	}
	return &Dispatcher{
		sender:  sender,
		target:  target,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		log:     log.With(logx.String("comp", "notifier")),
	}
}

// Dispatch sends chunks in order and returns one Result per chunk.
// Once ctx is done, the remaining chunks are reported failed with ctx.Err().
func (d *Dispatcher) Dispatch(ctx context.Context, chunks []string) []Result {
	out := make([]Result, len(chunks))
	opt := &transport.SendOptions{ParseMode: d.cfg.ParseMode, DisablePreview: d.cfg.DisablePreview}

	for i, text := range chunks {
		out[i] = Result{Index: i}
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		if err := d.limiter.Wait(ctx); err != nil {
			out[i].Err = err
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		ref, err := d.sender.SendText(callCtx, d.target, text, opt)
		cancel()
		if err != nil {
			out[i].Err = err
			d.log.Error("failed to send message",
				logx.Int("chunk", i),
				logx.Int("chunks", len(chunks)),
				logx.Err(err),
			)
			continue
		}
		out[i].OK = true
		out[i].MessageID = ref.MessageID
		d.log.Info("message sent",
			logx.Int("chunk", i),
			logx.Int("message_id", ref.MessageID),
			logx.String("preview", tgui.TruncRunes(text, 50)),
		)
	}
	return out
}
