// Package app wires providers, storage, composition and delivery into one
// run, and schedules runs for the long-lived daemon.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobalert/internal/compose"
	"jobalert/internal/config"
	"jobalert/internal/events"
	"jobalert/internal/ingest"
	"jobalert/internal/notifier"
	"jobalert/internal/posting"
	"jobalert/internal/provider"
	"jobalert/internal/storage"
	"jobalert/internal/transport"
	logx "jobalert/pkg/logx"
)

// Fetcher returns the merged postings for a set of queries.
type Fetcher interface {
	Fetch(ctx context.Context, queries []provider.Query) ([]posting.Record, error)
}

// StoreOpener opens the posting store for one run.
type StoreOpener func(ctx context.Context) (storage.Store, error)

// Report summarizes one run.
type Report struct {
	RunID    string
	Queries  int
	Fetched  int
	Stats    ingest.Stats
	Chunks   int
	Sent     int
	Failed   int
	Duration time.Duration
}

func (r Report) fields() []logx.Field {
	return []logx.Field{
		logx.Int("queries", r.Queries),
		logx.Int("fetched", r.Fetched),
		logx.Int("inserted", r.Stats.Inserted),
		logx.Int("duplicates", r.Stats.Duplicates),
		logx.Int("invalid", r.Stats.Invalid),
		logx.Int("chunks", r.Chunks),
		logx.Int("sent", r.Sent),
		logx.Int("failed", r.Failed),
		logx.Duration("took", r.Duration),
	}
}

// Runner executes fetch, ingest, compose and dispatch once per RunOnce call.
type Runner struct {
	cfg       *config.Config
	log       logx.Logger
	fetcher   Fetcher
	openStore StoreOpener
	sender    transport.Sender
	publisher events.Publisher
	ownsPub   bool
	composer  compose.Composer
	dryRun    bool
	newID     func() string
}

type Option func(*Runner)

func WithFetcher(f Fetcher) Option          { return func(r *Runner) { r.fetcher = f } }
func WithStoreOpener(fn StoreOpener) Option { return func(r *Runner) { r.openStore = fn } }
func WithSender(s transport.Sender) Option  { return func(r *Runner) { r.sender = s } }

// WithPublisher shares a publisher owned by the caller; Runner.Close leaves it open.
func WithPublisher(p events.Publisher) Option { return func(r *Runner) { r.publisher = p } }

// WithDryRun logs composed messages instead of sending them to Telegram.
func WithDryRun() Option { return func(r *Runner) { r.dryRun = true } }

func WithRunID(fn func() string) Option { return func(r *Runner) { r.newID = fn } }

// NewRunner builds a runner from cfg. Components not supplied by options are
// created from the configuration.
func NewRunner(cfg *config.Config, log logx.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Runner{
		cfg:      cfg,
		log:      log.With(logx.String("comp", "runner")),
		composer: mapComposer(cfg),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.fetcher == nil {
		providers, err := buildProviders(cfg)
		if err != nil {
			return nil, err
		}
		r.fetcher = provider.NewAggregator(providers, cfg.Search.Concurrency, log)
	}
	if r.openStore == nil {
		sc := mapStorageConfig(cfg)
		r.openStore = func(ctx context.Context) (storage.Store, error) {
			return storage.Open(ctx, sc, log)
		}
	}
	if r.sender == nil {
		if r.dryRun {
			r.sender = transport.NewLogSender(log)
		} else {
			s, err := newTelegramSender(cfg, log)
			if err != nil {
				return nil, err
			}
			r.sender = s
		}
	}
	if r.publisher == nil {
		r.publisher = events.OpenOrNop(mapEventsConfig(cfg), log)
		r.ownsPub = true
	}
	return r, nil
}

// Close releases resources the runner created itself.
func (r *Runner) Close() error {
	if r.ownsPub && r.publisher != nil {
		return r.publisher.Close()
	}
	return nil
}

// RunOnce performs one full run. Provider and delivery failures are logged
// and reflected in the report; only persistence faults and cancellation
// during fetch are returned as errors. Nothing is sent when ingest fails.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	rep := Report{RunID: r.newID()}
	log := r.log.With(logx.String("run_id", rep.RunID))
	finish := func() {
		rep.Duration = time.Since(start)
	}

	queries := provider.BuildQueries(r.cfg.JobTitles, r.cfg.Locations, r.cfg.CountryIndeed)
	rep.Queries = len(queries)
	log.Info("fetching job postings", logx.Int("queries", len(queries)))

	records, err := r.fetcher.Fetch(ctx, queries)
	if err != nil {
		finish()
		return rep, fmt.Errorf("fetch: %w", err)
	}
	rep.Fetched = len(records)

	fresh, stats, err := r.ingest(ctx, log, records)
	rep.Stats = stats
	if err != nil {
		finish()
		log.Error("persistence failed, nothing will be sent", logx.Err(err))
		return rep, err
	}

	r.publish(ctx, log, rep.RunID, fresh)

	if len(fresh) == 0 {
		finish()
		log.Info("no new job postings", rep.fields()...)
		return rep, nil
	}

	chunks := r.composer.Compose(fresh)
	rep.Chunks = len(chunks)
	d := notifier.New(mapNotifierConfig(r.cfg), r.sender, mapChatTarget(r.cfg), log)
	rep.Sent, rep.Failed = notifier.Summary(d.Dispatch(ctx, chunks))

	finish()
	if rep.Failed > 0 {
		log.Warn("run finished with delivery failures", rep.fields()...)
	} else {
		log.Info("run finished", rep.fields()...)
	}
	return rep, nil
}

// ingest opens the store, records the batch and closes the store again. The
// store is closed before anything is announced, and a failing Close is a
// persistence fault like any other.
func (r *Runner) ingest(ctx context.Context, log logx.Logger, records []posting.Record) ([]posting.Record, ingest.Stats, error) {
	var stats ingest.Stats
	store, err := r.openStore(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("open store: %w", err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = store.Close()
		}
	}()

	if err := store.Init(ctx); err != nil {
		return nil, stats, fmt.Errorf("init store: %w", err)
	}
	fresh, stats, err := ingest.New(store, log).Ingest(ctx, records)
	if err != nil {
		return nil, stats, fmt.Errorf("ingest: %w", err)
	}
	closed = true
	if err := store.Close(); err != nil {
		return nil, stats, fmt.Errorf("close store: %w", err)
	}
	return fresh, stats, nil
}

func (r *Runner) publish(ctx context.Context, log logx.Logger, runID string, fresh []posting.Record) {
	if len(fresh) == 0 {
		return
	}
	failed := 0
	for _, rec := range fresh {
		if err := r.publisher.PublishPosting(ctx, runID, rec); err != nil {
			failed++
			log.Debug("publish posting failed", logx.String("id", rec.ID), logx.Err(err))
		}
	}
	if err := r.publisher.Flush(ctx); err != nil {
		log.Warn("flush events failed", logx.Err(err))
	}
	if failed > 0 {
		log.Warn("some postings were not published", logx.Int("failed", failed), logx.Int("total", len(fresh)))
	}
}
