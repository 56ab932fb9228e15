package storage

import (
	"context"
	"errors"
	"time"

	"jobalert/internal/posting"
)

var (
	ErrClosed        = errors.New("storage closed")
	ErrNoKey         = errors.New("posting has neither id nor job_url")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// InsertResult is the outcome of a single insert attempt.
type InsertResult int

const (
	Inserted InsertResult = iota + 1
	Duplicate
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Store is the persistence API used by the ingest pipeline.
type Store interface {
	// Init idempotently creates the schema. Safe to call on every run.
	Init(ctx context.Context) error
	// Insert adds rec unless its id or job_url is already stored.
	Insert(ctx context.Context, rec posting.Record) (InsertResult, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "sqlite" (or empty): Path is the database file
//   - "file": Path is the journal file
//   - "postgres": DSN is the connection string
type Config struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DefaultPath is where the sqlite database lives unless configured otherwise.
const DefaultPath = "./job_postings.db"
