package app

import (
	"context"
	"fmt"

	"jobalert/internal/config"
	"jobalert/internal/storage"
	logx "jobalert/pkg/logx"
)

// InitStore opens the configured store, creates its schema and returns the
// number of stored postings.
func InitStore(ctx context.Context, cfg *config.Config, log logx.Logger) (int64, error) {
	sc := mapStorageConfig(cfg)
	st, err := storage.Open(ctx, sc, log)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Init(ctx); err != nil {
		return 0, fmt.Errorf("init store: %w", err)
	}
	n, err := st.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count postings: %w", err)
	}
	return n, nil
}
