package consolidator

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/supplycast/internal/contracts"
)

const upsertBestQuery = `
	INSERT INTO forecast_algoritmo_optimo (
		codigo_articulo, algoritmo_optimo, mae, rmse, smape, fecha_evaluacion
	) VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (codigo_articulo) DO UPDATE SET
		algoritmo_optimo = EXCLUDED.algoritmo_optimo,
		mae = EXCLUDED.mae,
		rmse = EXCLUDED.rmse,
		smape = EXCLUDED.smape,
		fecha_evaluacion = EXCLUDED.fecha_evaluacion
`

// Store persists best-algorithm rows
type Store struct {
	pool *pgxpool.Pool
}

// NewStore 새 저장소 생성
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert writes rows keyed by article in one transaction.
// Tied rows for the same article are applied in order, so the last one is stored.
func (s *Store) Upsert(ctx context.Context, rows []contracts.BestAlgorithm) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertBestQuery, r.Article, string(r.Algorithm), r.MAE, r.RMSE, r.SMAPE, r.EvaluationDate)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert best algorithms: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Get returns the stored row for article, or nil when none exists
func (s *Store) Get(ctx context.Context, article int64) (*contracts.BestAlgorithm, error) {
	var (
		b    contracts.BestAlgorithm
		algo string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT codigo_articulo, algoritmo_optimo, mae::float8, rmse::float8, smape::float8, fecha_evaluacion
		FROM forecast_algoritmo_optimo
		WHERE codigo_articulo = $1
	`, article).Scan(&b.Article, &algo, &b.MAE, &b.RMSE, &b.SMAPE, &b.EvaluationDate)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get best algorithm: %w", err)
	}
	b.Algorithm = contracts.Algorithm(algo)
	return &b, nil
}
