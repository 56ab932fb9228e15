package provider

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"jobalert/internal/posting"
	logx "jobalert/pkg/logx"
)

func TestBuildQueries(t *testing.T) {
	qs := BuildQueries([]string{"Go Developer", " ", "go developer", "SRE"}, []string{"Berlin", "", "Remote EU"}, "germany")
	want := []Query{
		{SearchTerm: "Go Developer", Country: "worldwide", Remote: true},
		{SearchTerm: "SRE", Country: "worldwide", Remote: true},
		{SearchTerm: "Go Developer", Location: "Berlin", Country: "germany"},
		{SearchTerm: "Go Developer", Location: "Remote EU", Country: "germany"},
		{SearchTerm: "SRE", Location: "Berlin", Country: "germany"},
		{SearchTerm: "SRE", Location: "Remote EU", Country: "germany"},
	}
	if len(qs) != len(want) {
		t.Fatalf("got %d queries: %+v", len(qs), qs)
	}
	for i := range want {
		if qs[i] != want[i] {
			t.Fatalf("query %d = %+v, want %+v", i, qs[i], want[i])
		}
	}
}

func TestBuildQueriesNoTitles(t *testing.T) {
	if qs := BuildQueries(nil, []string{"Berlin"}, "germany"); len(qs) != 0 {
		t.Fatalf("expected no queries, got %+v", qs)
	}
}

type fakeProvider struct {
	name  string
	delay func(Query) time.Duration
	fail  func(Query) bool
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Fetch(ctx context.Context, q Query) ([]posting.Record, error) {
	f.calls.Add(1)
	if f.delay != nil {
		select {
		case <-time.After(f.delay(q)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail != nil && f.fail(q) {
		return nil, errors.New("upstream 503")
	}
	return []posting.Record{
		{ID: f.name + "-" + q.SearchTerm, JobURL: "https://" + f.name + "/" + q.SearchTerm, Title: q.SearchTerm},
		// Shared across providers and queries: must survive once.
		{ID: "shared", JobURL: "https://shared/1", Title: "Shared"},
	}, nil
}

func TestAggregatorOrderAndDedup(t *testing.T) {
	slowFirst := func(q Query) time.Duration {
		if q.SearchTerm == "a" {
			return 30 * time.Millisecond
		}
		return 0
	}
	p1 := &fakeProvider{name: "p1", delay: slowFirst}
	p2 := &fakeProvider{name: "p2"}
	agg := NewAggregator([]Provider{p1, p2}, 4, logx.Nop())

	qs := []Query{{SearchTerm: "a", Remote: true}, {SearchTerm: "b", Remote: true}}
	got, err := agg.Fetch(context.Background(), qs)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []string{"p1-a", "shared", "p2-a", "p1-b", "p2-b"}
	if len(got) != len(want) {
		t.Fatalf("got %d records: %+v", len(got), got)
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("record %d = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestAggregatorRecoversProviderFailure(t *testing.T) {
	bad := &fakeProvider{name: "bad", fail: func(Query) bool { return true }}
	good := &fakeProvider{name: "good"}
	agg := NewAggregator([]Provider{bad, good}, 1, logx.Nop())

	qs := BuildQueries([]string{"go", "rust"}, []string{"Berlin"}, "germany")
	got, err := agg.Fetch(context.Background(), qs)
	if err != nil {
		t.Fatalf("provider failure must not abort aggregation: %v", err)
	}
	if bad.calls.Load() != int32(len(qs)) || good.calls.Load() != int32(len(qs)) {
		t.Fatalf("every pair should be attempted: bad=%d good=%d", bad.calls.Load(), good.calls.Load())
	}
	// good-go, shared, good-rust; the repeated queries produce exact duplicates.
	if len(got) != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestAggregatorCancelled(t *testing.T) {
	p := &fakeProvider{name: "p", delay: func(Query) time.Duration { return time.Second }}
	agg := NewAggregator([]Provider{p}, 2, logx.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	qs := make([]Query, 5)
	for i := range qs {
		qs[i] = Query{SearchTerm: fmt.Sprint(i), Remote: true}
	}
	if _, err := agg.Fetch(ctx, qs); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestOptionsLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []posting.Record{
		{ID: "fresh", DatePosted: "2026-03-01T11:30:00Z"},
		{ID: "old", DatePosted: "2026-02-27"},
		{ID: "unknown", DatePosted: "yesterday"},
		{ID: "naive", DatePosted: "2026-03-01T10:00:00"},
	}
	got := Options{HoursOld: 3, Now: func() time.Time { return now }}.limit(recs)
	if len(got) != 3 || got[0].ID != "fresh" || got[1].ID != "unknown" || got[2].ID != "naive" {
		t.Fatalf("got %+v", got)
	}

	many := make([]posting.Record, 30)
	if n := len(Options{}.limit(many)); n != DefaultResultsWanted {
		t.Fatalf("default cap = %d", n)
	}
	if n := len(Options{ResultsWanted: 5}.limit(make([]posting.Record, 30))); n != 5 {
		t.Fatalf("cap = %d", n)
	}
}
