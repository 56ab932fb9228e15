// Package events publishes newly ingested postings to NATS for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"jobalert/internal/posting"
	logx "jobalert/pkg/logx"
)

const (
	DefaultSubject = "jobs.new"
	connectTimeout = 10 * time.Second
)

// PostingEvent is the payload published for each new posting.
type PostingEvent struct {
	RunID string `json:"run_id"`
	posting.Record
	IngestedAt time.Time `json:"ingested_at"`
}

// Publisher announces new postings. Implementations must be safe to Close more than once.
type Publisher interface {
	PublishPosting(ctx context.Context, runID string, rec posting.Record) error
	// Flush waits until published events have reached the server.
	Flush(ctx context.Context) error
	Close() error
}

type Config struct {
	URL     string
	Subject string
	Name    string
}

// Open connects to NATS when cfg.URL is set and returns a no-op publisher otherwise.
func Open(cfg Config, log logx.Logger) (Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return Nop{}, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		subject = DefaultSubject
	}
	name := cfg.Name
	if name == "" {
		name = "jobalert"
	}
	log = log.With(logx.String("comp", "events"))

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logx.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", logx.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	log.Debug("nats connected", logx.String("subject", subject))
	return &natsPublisher{nc: nc, subject: subject, log: log, now: time.Now}, nil
}

// OpenOrNop is Open for callers that must keep running without NATS: a
// failed connection is logged and replaced by Nop.
func OpenOrNop(cfg Config, log logx.Logger) Publisher {
	p, err := Open(cfg, log)
	if err != nil {
		if log.IsZero() {
			log = logx.Nop()
		}
		log.Warn("events disabled: nats unavailable", logx.String("comp", "events"), logx.Err(err))
		return Nop{}
	}
	return p
}

type natsPublisher struct {
	nc      *nats.Conn
	subject string
	log     logx.Logger
	now     func() time.Time
}

func (p *natsPublisher) PublishPosting(ctx context.Context, runID string, rec posting.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(PostingEvent{RunID: runID, Record: rec, IngestedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	p.log.Debug("published posting event", logx.String("id", rec.ID), logx.Int("size", len(data)))
	return nil
}

func (p *natsPublisher) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, connectTimeout)
		defer cancel()
	}
	return p.nc.FlushWithContext(ctx)
}

func (p *natsPublisher) Close() error {
	if p.nc != nil && !p.nc.IsClosed() {
		p.nc.Close()
	}
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) PublishPosting(context.Context, string, posting.Record) error { return nil }
func (Nop) Flush(context.Context) error                                  { return nil }
func (Nop) Close() error                                                 { return nil }
