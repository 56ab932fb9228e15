// Package provider fetches raw postings from job boards.
//
// A run is described as a list of Query values; the Aggregator resolves every
// (query, provider) pair and merges the results in a deterministic order.
package provider

import (
	"context"
	"strings"
	"time"

	"jobalert/internal/posting"
)

// RemoteCountry is the country used for the remote pass.
const RemoteCountry = "worldwide"

// DefaultResultsWanted caps the records kept per query per provider.
const DefaultResultsWanted = 20

// Query is one search to resolve against every provider.
type Query struct {
	SearchTerm string
	// Location is empty for remote queries.
	Location string
	Country  string
	Remote   bool
}

func (q Query) String() string {
	if q.Remote {
		return q.SearchTerm + " @ remote"
	}
	return q.SearchTerm + " @ " + q.Location
}

// Provider fetches postings for a single query.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]posting.Record, error)
}

// BuildQueries enumerates the searches for a run: a remote pass per title,
// then every title at every location. Blank and repeated values are skipped.
func BuildQueries(titles, locations []string, country string) []Query {
	titles = uniq(titles)
	locations = uniq(locations)
	country = strings.TrimSpace(country)

	out := make([]Query, 0, len(titles)*(len(locations)+1))
	for _, t := range titles {
		out = append(out, Query{SearchTerm: t, Country: RemoteCountry, Remote: true})
	}
	for _, t := range titles {
		for _, l := range locations {
			out = append(out, Query{SearchTerm: t, Location: l, Country: country})
		}
	}
	return out
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Options limit what a provider returns for one query.
type Options struct {
	// ResultsWanted caps records per query; <= 0 means DefaultResultsWanted.
	ResultsWanted int
	// HoursOld drops records whose date is older than this many hours; 0 disables.
	HoursOld int
	Now      func() time.Time
}

func (o Options) limit(recs []posting.Record) []posting.Record {
	n := o.ResultsWanted
	if n <= 0 {
		n = DefaultResultsWanted
	}
	if o.HoursOld > 0 {
		now := time.Now()
		if o.Now != nil {
			now = o.Now()
		}
		cutoff := now.Add(-time.Duration(o.HoursOld) * time.Hour)
		kept := recs[:0]
		for _, r := range recs {
			if t, ok := parseDate(r.DatePosted); ok && t.Before(cutoff) {
				continue
			}
			kept = append(kept, r)
		}
		recs = kept
	}
	if len(recs) > n {
		recs = recs[:n]
	}
	return recs
}
