package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"jobalert/internal/posting"
	logx "jobalert/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// The journal is an append-only JSON Lines file, one accepted posting per line.
// It is replayed into in-memory id and job_url indexes on open.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer

	ids  map[string]struct{}
	urls map[string]struct{}
}

type fileRecord struct {
	Key string `json:"key"`
	posting.Record
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:  log,
		path: path,
		ids:  map[string]struct{}{},
		urls: map[string]struct{}{},
	}
	n, err := s.replay()
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	s.f = f
	s.w = bufio.NewWriter(f)
	log.Debug("file store opened", logx.String("path", path), logx.Int("records", n))
	return s, nil
}

// replay loads the journal. A line that does not decode means the journal is
// corrupt; that is reported instead of skipped so dedup never silently degrades.
func (s *fileStore) replay() (int, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var r fileRecord
		if err := json.Unmarshal(b, &r); err != nil {
			return 0, fmt.Errorf("file store %s: corrupt line %d: %w", s.path, line, err)
		}
		if r.Key == "" {
			return 0, fmt.Errorf("file store %s: line %d has no key", s.path, line)
		}
		s.index(r.Key, r.JobURL)
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("file store %s: %w", s.path, err)
	}
	return len(s.ids), nil
}

func (s *fileStore) index(key, url string) {
	s.ids[key] = struct{}{}
	if strings.TrimSpace(url) != "" {
		s.urls[url] = struct{}{}
	}
}

func (s *fileStore) Init(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	return nil
}

func (s *fileStore) Insert(ctx context.Context, rec posting.Record) (InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := rec.StoreKey()
	if key == "" {
		return 0, ErrNoKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, ErrClosed
	}
	if _, ok := s.ids[key]; ok {
		return Duplicate, nil
	}
	if strings.TrimSpace(rec.JobURL) != "" {
		if _, ok := s.urls[rec.JobURL]; ok {
			return Duplicate, nil
		}
	}

	b, err := json.Marshal(fileRecord{Key: key, Record: rec})
	if err != nil {
		return 0, err
	}
	b = append(b, '\n')
	if _, err := s.w.Write(b); err != nil {
		return 0, fmt.Errorf("file store %s: %w", s.path, err)
	}
	if err := s.w.Flush(); err != nil {
		return 0, fmt.Errorf("file store %s: %w", s.path, err)
	}
	s.index(key, rec.JobURL)
	return Inserted, nil
}

func (s *fileStore) Count(ctx context.Context) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, ErrClosed
	}
	return int64(len(s.ids)), nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	if err := s.w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
