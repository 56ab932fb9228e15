package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobalert/internal/posting"
	logx "jobalert/pkg/logx"
)

//go:embed schema_postgres.sql
var postgresSchema string

type postgresStore struct {
	mu   sync.Mutex
	pool *pgxpool.Pool
	log  logx.Logger
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("storage.dsn is required for postgres driver")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	log.Debug("postgres store opened")
	return &postgresStore{pool: pool, log: log}, nil
}

func (s *postgresStore) handle() (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return nil, ErrClosed
	}
	return s.pool, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	pool, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}

func (s *postgresStore) Insert(ctx context.Context, rec posting.Record) (InsertResult, error) {
	pool, err := s.handle()
	if err != nil {
		return 0, err
	}
	key := rec.StoreKey()
	if key == "" {
		return 0, ErrNoKey
	}
	tag, err := pool.Exec(ctx,
		`INSERT INTO job_postings (id, site, job_url, title, company, location, date_posted, job_type, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT DO NOTHING`,
		key, rec.Site, nullStr(rec.JobURL), rec.Title, rec.Company, rec.Location,
		rec.DatePosted, rec.JobType, rec.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres insert %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return Duplicate, nil
	}
	return Inserted, nil
}

func (s *postgresStore) Count(ctx context.Context) (int64, error) {
	pool, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM job_postings`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *postgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}
