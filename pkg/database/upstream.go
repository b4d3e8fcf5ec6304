package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/rs/zerolog"
	"github.com/wonny/supplycast/pkg/config"
)

// Upstream is the item-master / sales warehouse handle
type Upstream struct {
	*sqlx.DB
}

// NewUpstream opens the warehouse connection with the same bounded retry as New.
// UPSTREAM_DATABASE_URL가 비어 있으면 (nil, nil): cache-only 모드
func NewUpstream(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Upstream, error) {
	if !cfg.Upstream.Enabled() {
		return nil, nil
	}

	var db *sqlx.DB
	err := Retry(ctx, cfg.Database.ConnectAttempts, cfg.Database.ConnectWait, log, func(ctx context.Context) error {
		d, err := sqlx.ConnectContext(ctx, "postgres", cfg.Upstream.URL)
		if err != nil {
			return fmt.Errorf("failed to connect upstream: %w", err)
		}
		db = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetConnMaxLifetime(cfg.Database.MaxConnLifetime)

	return &Upstream{DB: db}, nil
}

// Close closes the warehouse connection
func (u *Upstream) Close() error {
	if u == nil || u.DB == nil {
		return nil
	}
	return u.DB.Close()
}
