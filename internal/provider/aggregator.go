package provider

import (
	"context"

	"golang.org/x/sync/errgroup"

	"jobalert/internal/posting"
	logx "jobalert/pkg/logx"
)

// Aggregator resolves queries against every provider.
type Aggregator struct {
	providers   []Provider
	concurrency int
	log         logx.Logger
}

// NewAggregator builds an aggregator; concurrency <= 0 means one request at a time.
func NewAggregator(providers []Provider, concurrency int, log logx.Logger) *Aggregator {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Aggregator{
		providers:   providers,
		concurrency: concurrency,
		log:         log.With(logx.String("comp", "aggregator")),
	}
}

type fetchJob struct {
	q Query
	p Provider
}

// Fetch returns the merged postings for all queries, ordered by query then by
// provider, with exact duplicates removed. A failing provider contributes
// nothing for that query; only cancellation of ctx makes Fetch fail.
func (a *Aggregator) Fetch(ctx context.Context, queries []Query) ([]posting.Record, error) {
	jobs := make([]fetchJob, 0, len(queries)*len(a.providers))
	for _, q := range queries {
		for _, p := range a.providers {
			jobs = append(jobs, fetchJob{q: q, p: p})
		}
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	results := make([][]posting.Record, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := j.p.Fetch(gctx, j.q)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.log.Warn("provider fetch failed",
					logx.String("provider", j.p.Name()),
					logx.String("query", j.q.String()),
					logx.Err(err),
				)
				return nil
			}
			a.log.Debug("provider fetched",
				logx.String("provider", j.p.Name()),
				logx.String("query", j.q.String()),
				logx.Int("records", len(recs)),
			)
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[posting.Record]struct{})
	var out []posting.Record
	for _, recs := range results {
		for _, r := range recs {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out, nil
}
