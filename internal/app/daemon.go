package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"jobalert/internal/config"
	"jobalert/internal/events"
	"jobalert/internal/schedule"
	logx "jobalert/pkg/logx"
)

// DaemonOptions customizes a Daemon. The zero value is usable.
type DaemonOptions struct {
	// Logs is re-applied with LogConfig on every accepted config reload.
	Logs      *logx.Service
	LogConfig func(*config.Config) logx.Config
	// RunnerOptions are passed to every runner the daemon builds.
	RunnerOptions []Option
	// Notify reports service state to systemd. Defaults to sd_notify.
	Notify func(state string)
}

// Daemon runs the pipeline on a schedule until its context is cancelled.
type Daemon struct {
	cfgm      *config.ConfigManager
	log       logx.Logger
	logs      *logx.Service
	logConfig func(*config.Config) logx.Config
	runOpts   []Option
	notify    func(state string)
	newRunner func(cfg *config.Config, log logx.Logger, opts ...Option) (*Runner, error)
	openPub   func(cfg events.Config, log logx.Logger) events.Publisher

	mu     sync.Mutex
	cron   *cron.Cron
	job    cron.Job
	entry  cron.EntryID
	spec   schedule.Spec
	pub    *sharedPublisher
	pubCfg events.Config
}

func NewDaemon(cfgm *config.ConfigManager, log logx.Logger, opts DaemonOptions) *Daemon {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "daemon"))
	d := &Daemon{
		cfgm:      cfgm,
		log:       log,
		logs:      opts.Logs,
		logConfig: opts.LogConfig,
		runOpts:   opts.RunnerOptions,
		notify:    opts.Notify,
		newRunner: NewRunner,
		openPub:   events.OpenOrNop,
	}
	if d.logConfig == nil {
		d.logConfig = LogConfig
	}
	if d.notify == nil {
		d.notify = func(state string) {
			if _, err := sddaemon.SdNotify(false, state); err != nil {
				log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
			}
		}
	}
	return d
}

// Run schedules cycles from the committed config and blocks until ctx is
// done. A cycle in flight at shutdown is allowed to finish.
func (d *Daemon) Run(ctx context.Context) error {
	cfg := d.cfgm.Get()
	if cfg == nil {
		return errors.New("config not loaded")
	}
	loc, err := schedule.Location(cfg.Schedule.Timezone)
	if err != nil {
		return err
	}

	d.pubCfg = mapEventsConfig(cfg)
	d.swapPublisher(d.openPub(d.pubCfg, d.log))
	defer d.swapPublisher(events.Nop{})

	// Cycles outlive ctx so a shutdown signal does not cut a run in half.
	runCtx := context.WithoutCancel(ctx)
	cl := cronLogger{log: d.log}
	d.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { d.cycle(runCtx) }))
	d.cron = cron.New(cron.WithLocation(loc), cron.WithParser(schedule.Parser), cron.WithLogger(cl))
	if err := d.reschedule(cfg.Schedule.SpecOrDefault()); err != nil {
		return err
	}
	spec := d.spec.String()
	d.cron.Start()

	var inflight sync.WaitGroup
	if cfg.Schedule.RunOnStartOrDefault() {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			d.job.Run()
		}()
	}

	// Reject reloads whose providers cannot be built before they are committed.
	d.cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		_, err := ProviderNames(c)
		return err
	})
	updates := d.cfgm.Subscribe(4)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.cfgm.Watch(gctx) })
	g.Go(func() error {
		d.watchReloads(gctx, updates, cfg)
		return nil
	})

	d.notify(sddaemon.SdNotifyReady)
	d.log.Info("daemon started",
		logx.String("schedule", spec),
		logx.String("timezone", loc.String()),
		logx.Bool("run_on_start", cfg.Schedule.RunOnStartOrDefault()),
	)

	err = g.Wait()
	d.notify(sddaemon.SdNotifyStopping)
	d.cfgm.Unsubscribe(updates)
	d.log.Info("stopping; waiting for in-flight run")
	<-d.cron.Stop().Done()
	inflight.Wait()
	d.log.Info("daemon stopped")
	return err
}

func (d *Daemon) reschedule(raw string) error {
	sp, err := schedule.Parse(raw)
	if err != nil {
		return err
	}
	sched, err := sp.Schedule()
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.entry != 0 {
		d.cron.Remove(d.entry)
	}
	d.entry = d.cron.Schedule(sched, d.job)
	d.spec = sp
	return nil
}

func (d *Daemon) cycle(ctx context.Context) {
	cfg := d.cfgm.Get()
	pub := d.acquirePublisher()
	defer d.releasePublisher(pub)
	opts := make([]Option, 0, len(d.runOpts)+1)
	opts = append(opts, WithPublisher(pub.Publisher))
	opts = append(opts, d.runOpts...)

	r, err := d.newRunner(cfg, d.log, opts...)
	if err != nil {
		d.log.Error("build runner failed", logx.Err(err))
		return
	}
	defer r.Close()
	if _, err := r.RunOnce(ctx); err != nil {
		d.log.Error("run failed", logx.Err(err))
	}
}

// watchReloads applies committed config updates. Bursts are coalesced so
// only the newest config is applied.
func (d *Daemon) watchReloads(ctx context.Context, ch <-chan *config.Config, prev *config.Config) {
	for {
		var cfg *config.Config
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			cfg = c
		}
	drain:
		for {
			select {
			case c, ok := <-ch:
				if !ok {
					break drain
				}
				cfg = c
			default:
				break drain
			}
		}
		d.apply(prev, cfg)
		prev = cfg
	}
}

func (d *Daemon) apply(prev, cfg *config.Config) {
	sections, fields := config.SummarizeConfigChange(prev, cfg)
	if len(sections) == 0 {
		return
	}
	d.log.Info("config reloaded", append([]logx.Field{logx.Strs("sections", sections)}, fields...)...)

	if d.logs != nil {
		if err := d.logs.Apply(d.logConfig(cfg)); err != nil {
			d.log.Warn("logging change ignored", logx.Err(err))
		}
	}
	if prev.Schedule.SpecOrDefault() != cfg.Schedule.SpecOrDefault() {
		if err := d.reschedule(cfg.Schedule.SpecOrDefault()); err != nil {
			d.log.Warn("schedule change ignored", logx.Err(err))
		} else {
			d.log.Info("schedule updated", logx.String("schedule", cfg.Schedule.SpecOrDefault()))
		}
	}
	if prev.Schedule.Timezone != cfg.Schedule.Timezone {
		d.log.Warn("timezone change takes effect after restart", logx.String("timezone", cfg.Schedule.Timezone))
	}
	if next := mapEventsConfig(cfg); next != d.pubCfg {
		d.pubCfg = next
		d.swapPublisher(d.openPub(next, d.log))
	}
}

// cronLogger routes robfig/cron logs through logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		l.log.Warn("previous run still in progress; skipping", kvFields(keysAndValues)...)
		return
	}
	l.log.Debug("cron "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k := fmt.Sprint(kv[i])
		switch v := kv[i+1].(type) {
		case time.Time:
			out = append(out, logx.Time(k, v))
		default:
			out = append(out, logx.Any(k, v))
		}
	}
	return out
}
