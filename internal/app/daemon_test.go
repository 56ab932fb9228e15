package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"jobalert/internal/config"
	"jobalert/internal/events"
	logx "jobalert/pkg/logx"
)

func loadManager(t *testing.T, schedule string) *config.ConfigManager {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`{
  "job_titles": ["golang developer"],
  "locations": ["Berlin"],
  "country_indeed": "germany",
  "telegram": {"bot_token": "123:abc", "chat_id": -100123, "rate_per_sec": 1000},
  "logging": {"file": {"enabled": false}},
  "storage": {"driver": "sqlite", "path": %q},
  "schedule": {"spec": %q}
}`, filepath.Join(dir, "job_postings.db"), schedule)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	m := config.NewConfigManager(path)
	m.SetEnv(func(string) string { return "" })
	if _, err := m.Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
	return m
}

type stateRecorder struct {
	mu     sync.Mutex
	states []string
}

func (s *stateRecorder) notify(state string) {
	s.mu.Lock()
	s.states = append(s.states, state)
	s.mu.Unlock()
}

func TestDaemonRunsOnStartAndStops(t *testing.T) {
	cfgm := loadManager(t, "@every 1h")
	sender := &recordingSender{}
	states := &stateRecorder{}
	d := NewDaemon(cfgm, logx.Nop(), DaemonOptions{
		RunnerOptions: []Option{
			WithFetcher(&staticFetcher{recs: samplePostings()}),
			WithSender(sender),
		},
		Notify: states.notify,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(sender.sent()) == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("run on start did not deliver")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("daemon did not stop")
	}

	states.mu.Lock()
	defer states.mu.Unlock()
	if len(states.states) != 2 || states.states[0] != "READY=1" || states.states[1] != "STOPPING=1" {
		t.Fatalf("unexpected sd_notify states %v", states.states)
	}
}

func TestDaemonApplyReschedules(t *testing.T) {
	cfgm := loadManager(t, "@every 1h")
	d := NewDaemon(cfgm, logx.Nop(), DaemonOptions{Notify: func(string) {}})
	d.cron = cron.New()
	d.job = cron.FuncJob(func() {})
	if err := d.reschedule("@every 1h"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	prev := cfgm.Get()
	next := *prev
	next.Schedule.Spec = "30m"
	d.apply(prev, &next)

	if d.spec.Every != 30*time.Minute {
		t.Fatalf("schedule not updated: %+v", d.spec)
	}
	if n := len(d.cron.Entries()); n != 1 {
		t.Fatalf("got %d cron entries, want 1", n)
	}

	bad := next
	bad.Schedule.Spec = "61 * * * *"
	d.apply(&next, &bad)
	if d.spec.Every != 30*time.Minute {
		t.Fatalf("invalid schedule replaced the old one: %+v", d.spec)
	}
}

func TestDaemonRequiresLoadedConfig(t *testing.T) {
	d := NewDaemon(config.NewConfigManager("missing.json"), logx.Nop(), DaemonOptions{Notify: func(string) {}})
	if err := d.Run(context.Background()); err == nil {
		t.Fatalf("expected error without config")
	}
}

type closingPublisher struct {
	events.Nop
	mu     sync.Mutex
	closed bool
}

func (p *closingPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *closingPublisher) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func TestReloadKeepsPublisherUntilCycleEnds(t *testing.T) {
	cfgm := loadManager(t, "@every 1h")
	d := NewDaemon(cfgm, logx.Nop(), DaemonOptions{Notify: func(string) {}})
	d.openPub = func(events.Config, logx.Logger) events.Publisher { return events.Nop{} }
	first := &closingPublisher{}
	d.swapPublisher(first)

	inUse := d.acquirePublisher()

	prev := cfgm.Get()
	next := *prev
	next.Events.NATSURL = "nats://127.0.0.1:4222"
	d.apply(prev, &next)

	if first.isClosed() {
		t.Fatal("publisher closed while a cycle still uses it")
	}
	d.releasePublisher(inUse)
	if !first.isClosed() {
		t.Fatal("retired publisher not closed after its last cycle")
	}
	if d.pubCfg.URL != "nats://127.0.0.1:4222" {
		t.Fatalf("events config not updated: %+v", d.pubCfg)
	}
}
