// Package ingest turns a fetched batch of postings into the subset that is new to the store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"jobalert/internal/posting"
	"jobalert/internal/storage"
	logx "jobalert/pkg/logx"
)

// Inserter is the part of storage.Store the pipeline needs.
type Inserter interface {
	Insert(ctx context.Context, rec posting.Record) (storage.InsertResult, error)
}

// Stats counts the outcome of one Ingest call.
type Stats struct {
	Seen       int
	Inserted   int
	Duplicates int
	Invalid    int
}

// Pipeline feeds fetched postings through the store and keeps the new ones.
type Pipeline struct {
	store Inserter
	log   logx.Logger
}

// New returns a pipeline writing to store.
func New(store Inserter, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pipeline{store: store, log: log.With(logx.String("comp", "ingest"))}
}

// Ingest inserts records in order and returns those the store accepted, in input order.
//
// Duplicates within the batch are caught by the store itself, so the first
// occurrence wins. Records with neither id nor job_url are counted as Invalid
// and never reach the store. Any store error aborts the batch; no partial
// output is returned in that case.
func (p *Pipeline) Ingest(ctx context.Context, records []posting.Record) ([]posting.Record, Stats, error) {
	var st Stats
	if len(records) == 0 {
		return nil, st, nil
	}
	if p == nil || p.store == nil {
		return nil, st, errors.New("ingest: nil store")
	}

	fresh := make([]posting.Record, 0, len(records))
	for i, rec := range records {
		st.Seen++
		if !rec.HasKey() {
			st.Invalid++
			p.log.Debug("posting without id or job_url skipped",
				logx.Int("pos", i), logx.String("site", rec.Site), logx.String("title", rec.Title))
			continue
		}
		res, err := p.store.Insert(ctx, rec)
		if err != nil {
			return nil, st, fmt.Errorf("ingest record %d (%s): %w", i, rec.StoreKey(), err)
		}
		switch res {
		case storage.Inserted:
			st.Inserted++
			fresh = append(fresh, rec)
		case storage.Duplicate:
			st.Duplicates++
		default:
			return nil, st, fmt.Errorf("ingest record %d: unexpected insert result %v", i, res)
		}
	}

	p.log.Debug("batch ingested",
		logx.Int("seen", st.Seen),
		logx.Int("inserted", st.Inserted),
		logx.Int("duplicates", st.Duplicates),
		logx.Int("invalid", st.Invalid),
	)
	return fresh, st, nil
}
