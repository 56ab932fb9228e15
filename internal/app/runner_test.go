package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"jobalert/internal/config"
	"jobalert/internal/posting"
	"jobalert/internal/provider"
	"jobalert/internal/storage"
	"jobalert/internal/transport"
	logx "jobalert/pkg/logx"
)

type staticFetcher struct {
	recs    []posting.Record
	err     error
	queries []provider.Query
}

func (f *staticFetcher) Fetch(ctx context.Context, qs []provider.Query) ([]posting.Record, error) {
	f.queries = qs
	return f.recs, f.err
}

type recordingSender struct {
	mu     sync.Mutex
	texts  []string
	fail   bool
	onSend func(text string)
}

func (s *recordingSender) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if s.onSend != nil {
		s.onSend(text)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return transport.MessageRef{}, errors.New("chat not found")
	}
	s.texts = append(s.texts, text)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(s.texts)}, nil
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type failingStore struct{ closed bool }

func (s *failingStore) Init(context.Context) error { return nil }
func (s *failingStore) Insert(context.Context, posting.Record) (storage.InsertResult, error) {
	return 0, errors.New("disk I/O error")
}
func (s *failingStore) Count(context.Context) (int64, error) { return 0, nil }
func (s *failingStore) Close() error {
	s.closed = true
	return nil
}

// closeTracker wraps a store and records when Close ran.
type closeTracker struct {
	storage.Store
	mu       sync.Mutex
	closed   bool
	closeErr error
}

func (s *closeTracker) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if err := s.Store.Close(); err != nil {
		return err
	}
	return s.closeErr
}

func (s *closeTracker) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JobTitles:     []string{"golang developer"},
		Locations:     []string{"Berlin"},
		CountryIndeed: "germany",
		Telegram: config.TelegramConfig{
			BotToken:   "TEST:TOKEN",
			ChatID:     "-100123",
			RatePerSec: 1000,
		},
		Storage: config.StorageConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "job_postings.db"),
		},
	}
}

func fixedRunID() string { return "run-1" }

func samplePostings() []posting.Record {
	return []posting.Record{
		{ID: "a1", JobURL: "https://jobs.example/a1", Title: "Go Engineer", Site: "remotive"},
		{ID: "b2", JobURL: "https://jobs.example/b2", Title: "Backend Developer", Site: "remotive"},
	}
}

func TestRunOnceDeliversNewPostingsOnce(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &staticFetcher{recs: samplePostings()}
	sender := &recordingSender{}
	r, err := NewRunner(cfg, logx.Nop(), WithFetcher(fetcher), WithSender(sender), WithRunID(fixedRunID))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if rep.RunID != "run-1" || rep.Queries != 2 || rep.Fetched != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Stats.Inserted != 2 || rep.Chunks != 1 || rep.Sent != 1 || rep.Failed != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(fetcher.queries) != 2 || !fetcher.queries[0].Remote || fetcher.queries[1].Location != "Berlin" {
		t.Fatalf("unexpected queries %+v", fetcher.queries)
	}

	texts := sender.sent()
	if len(texts) != 1 {
		t.Fatalf("got %d messages, want 1", len(texts))
	}
	if !strings.HasPrefix(texts[0], "<b>New Job Alerts!</b>\n\n<b>Go Engineer</b>") {
		t.Fatalf("unexpected message %q", texts[0])
	}
	if strings.Index(texts[0], "Go Engineer") > strings.Index(texts[0], "Backend Developer") {
		t.Fatalf("postings out of order: %q", texts[0])
	}

	rep, err = r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if rep.Stats.Inserted != 0 || rep.Stats.Duplicates != 2 || rep.Chunks != 0 {
		t.Fatalf("second run should find nothing new: %+v", rep)
	}
	if got := len(sender.sent()); got != 1 {
		t.Fatalf("second run sent messages: total %d", got)
	}
}

func TestRunOncePersistenceFaultSendsNothing(t *testing.T) {
	cfg := testConfig(t)
	store := &failingStore{}
	sender := &recordingSender{}
	r, err := NewRunner(cfg, logx.Nop(),
		WithFetcher(&staticFetcher{recs: samplePostings()}),
		WithSender(sender),
		WithStoreOpener(func(context.Context) (storage.Store, error) { return store, nil }),
	)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	if _, err := r.RunOnce(context.Background()); err == nil || !strings.Contains(err.Error(), "disk I/O error") {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if !store.closed {
		t.Fatalf("store was not closed")
	}
	if got := len(sender.sent()); got != 0 {
		t.Fatalf("sent %d messages after persistence fault", got)
	}
}

func TestRunOnceOpenFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "mongo"
	sender := &recordingSender{}
	r, err := NewRunner(cfg, logx.Nop(), WithFetcher(&staticFetcher{recs: samplePostings()}), WithSender(sender))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	_, err = r.RunOnce(context.Background())
	if !errors.Is(err, storage.ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
	if got := len(sender.sent()); got != 0 {
		t.Fatalf("sent %d messages", got)
	}
}

func TestRunOnceDispatchFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	sender := &recordingSender{fail: true}
	r, err := NewRunner(cfg, logx.Nop(), WithFetcher(&staticFetcher{recs: samplePostings()}), WithSender(sender))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("dispatch failure should not fail the run: %v", err)
	}
	if rep.Sent != 0 || rep.Failed != 1 || rep.Stats.Inserted != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestRunOnceNoPostings(t *testing.T) {
	cfg := testConfig(t)
	sender := &recordingSender{}
	r, err := NewRunner(cfg, logx.Nop(), WithFetcher(&staticFetcher{}), WithSender(sender))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Chunks != 0 || len(sender.sent()) != 0 {
		t.Fatalf("expected nothing sent: %+v", rep)
	}
}

func TestRunOnceFetchCancelled(t *testing.T) {
	cfg := testConfig(t)
	r, err := NewRunner(cfg, logx.Nop(),
		WithFetcher(&staticFetcher{err: context.Canceled}),
		WithSender(&recordingSender{}),
	)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	if _, err := r.RunOnce(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDryRunLogsInsteadOfSending(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telegram.BotToken = ""
	r, err := NewRunner(cfg, logx.Nop(), WithFetcher(&staticFetcher{recs: samplePostings()}), WithDryRun())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	ls, ok := r.sender.(*transport.LogSender)
	if !ok {
		t.Fatalf("dry run sender is %T", r.sender)
	}
	if rep.Sent != 1 || len(ls.Sent()) != 1 {
		t.Fatalf("unexpected dry run result %+v", rep)
	}
}

func TestRunnerFromConfigEndToEnd(t *testing.T) {
	remotive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search"); got != "golang developer" {
			t.Errorf("search = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[
			{"id":101,"url":"https://remotive.com/remote-jobs/101","title":"Go & Rust Engineer","company_name":"Acme","candidate_required_location":"Worldwide"},
			{"id":102,"url":"https://remotive.com/remote-jobs/102","title":"Platform Engineer","company_name":"Initech","candidate_required_location":"USA only"}
		]}`))
	}))
	defer remotive.Close()

	var (
		mu    sync.Mutex
		texts []string
	)
	botAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Lock()
		text, _ := params["text"].(string)
		texts = append(texts, text)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100123,"type":"supergroup"}}}`))
	}))
	defer botAPI.Close()

	cfg := testConfig(t)
	cfg.Telegram.APIURL = botAPI.URL
	cfg.Providers.Remotive.BaseURL = remotive.URL

	r, err := NewRunner(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// The remote pass returns both jobs; the Berlin pass only the worldwide one,
	// which merges away as an exact duplicate.
	if rep.Fetched != 2 || rep.Stats.Inserted != 2 || rep.Sent != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(texts) != 1 {
		t.Fatalf("got %d messages", len(texts))
	}
	want := "<b>Go &amp; Rust Engineer</b>\n<a href=\"https://remotive.com/remote-jobs/101\">View Job Posting</a>"
	if !strings.Contains(texts[0], want) {
		t.Fatalf("message %q missing %q", texts[0], want)
	}
}

func TestBuildProvidersOrder(t *testing.T) {
	cfg := testConfig(t)
	on := true
	cfg.Providers.RemoteOK.Enabled = &on
	cfg.Providers.HTML = []config.BoardConfig{{
		Name: "gophers", URL: "https://board.example/search?q={term}",
		Item: ".job", Title: "h2", Link: "a",
	}}

	ps, err := buildProviders(cfg)
	if err != nil {
		t.Fatalf("build providers: %v", err)
	}
	var names []string
	for _, p := range ps {
		names = append(names, p.Name())
	}
	if got := strings.Join(names, ","); got != "remotive,remoteok,gophers" {
		t.Fatalf("providers = %s", got)
	}

	off := false
	cfg.Providers.Remotive.Enabled = &off
	cfg.Providers.RemoteOK.Enabled = &off
	cfg.Providers.HTML = nil
	if _, err := buildProviders(cfg); err == nil {
		t.Fatalf("expected error with no providers")
	}
}

func TestLogConfigDefaults(t *testing.T) {
	cfg := testConfig(t)
	lc := LogConfig(cfg)
	if lc.Level != "INFO" || !lc.Console || !lc.File.Enabled || lc.File.Path != config.DefaultLogFile {
		t.Fatalf("unexpected log config %+v", lc)
	}
	off := false
	cfg.Logging.File.Enabled = &off
	cfg.Logging.Level = "DEBUG"
	lc = LogConfig(cfg)
	if lc.Level != "DEBUG" || lc.File.Enabled {
		t.Fatalf("unexpected log config %+v", lc)
	}
}

func TestInitStoreIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	for i := 0; i < 2; i++ {
		n, err := InitStore(context.Background(), cfg, logx.Nop())
		if err != nil {
			t.Fatalf("init #%d: %v", i+1, err)
		}
		if n != 0 {
			t.Fatalf("init #%d: count = %d", i+1, n)
		}
	}
}

func TestRunOnceStoreClosedAndDurableBeforeSend(t *testing.T) {
	cfg := testConfig(t)
	journal := filepath.Join(t.TempDir(), "postings.jsonl")
	var tracker *closeTracker
	open := func(ctx context.Context) (storage.Store, error) {
		st, err := storage.Open(ctx, storage.Config{Driver: "file", Path: journal}, logx.Nop())
		if err != nil {
			return nil, err
		}
		tracker = &closeTracker{Store: st}
		return tracker, nil
	}

	var (
		closedAtSend  bool
		journalAtSend []byte
	)
	sender := &recordingSender{onSend: func(string) {
		closedAtSend = tracker.isClosed()
		journalAtSend, _ = os.ReadFile(journal)
	}}
	r, err := NewRunner(cfg, logx.Nop(),
		WithFetcher(&staticFetcher{recs: samplePostings()}),
		WithSender(sender),
		WithStoreOpener(open),
	)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Sent != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !closedAtSend {
		t.Fatalf("store still open while sending")
	}
	if got := strings.Count(string(journalAtSend), "\n"); got != 2 {
		t.Fatalf("journal had %d lines while sending, want 2", got)
	}
}

func TestRunOnceCloseFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	open := func(ctx context.Context) (storage.Store, error) {
		st, err := storage.Open(ctx, mapStorageConfig(cfg), logx.Nop())
		if err != nil {
			return nil, err
		}
		return &closeTracker{Store: st, closeErr: errors.New("sync: input/output error")}, nil
	}
	sender := &recordingSender{}
	r, err := NewRunner(cfg, logx.Nop(),
		WithFetcher(&staticFetcher{recs: samplePostings()}),
		WithSender(sender),
		WithStoreOpener(open),
	)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	_, err = r.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "close store") {
		t.Fatalf("expected close error, got %v", err)
	}
	if got := len(sender.sent()); got != 0 {
		t.Fatalf("sent %d messages after close failure", got)
	}
}

func TestRunnerSurvivesUnreachableNATS(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.NATSURL = "nats://127.0.0.1:1"
	sender := &recordingSender{}
	r, err := NewRunner(cfg, logx.Nop(), WithFetcher(&staticFetcher{recs: samplePostings()}), WithSender(sender))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	defer r.Close()

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Sent != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
}
