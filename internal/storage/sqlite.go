package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"jobalert/internal/posting"
	logx "jobalert/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

type sqliteStore struct {
	mu  sync.Mutex
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite open %s: %w", path, err)
		}
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	log.Debug("sqlite store opened", logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) Insert(ctx context.Context, rec posting.Record) (InsertResult, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	key := rec.StoreKey()
	if key == "" {
		return 0, ErrNoKey
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO job_postings(id, site, job_url, title, company, location, date_posted, job_type, description)
		 VALUES(?,?,?,?,?,?,?,?,?)
		 ON CONFLICT DO NOTHING`,
		key, rec.Site, nullStr(rec.JobURL), rec.Title, rec.Company, rec.Location,
		rec.DatePosted, rec.JobType, rec.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite insert %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite insert %s: %w", key, err)
	}
	if n == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_postings`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
