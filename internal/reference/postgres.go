package reference

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads fnd_product / fnd_site / fnd_supplier
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource 새 참조 데이터 소스 생성
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Products implements Source
func (s *PostgresSource) Products(ctx context.Context) (map[int64]string, error) {
	return s.codeMap(ctx, `SELECT ext_code, id::text FROM fnd_product`)
}

// Sites implements Source
func (s *PostgresSource) Sites(ctx context.Context) (map[int64]string, error) {
	return s.codeMap(ctx, `SELECT code, id::text FROM fnd_site`)
}

// Supplier implements Source
func (s *PostgresSource) Supplier(ctx context.Context, extCode int64) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id::text FROM fnd_supplier WHERE ext_code = $1`, extCode).Scan(&id)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get supplier %d: %w", extCode, err)
	}
	return id, nil
}

func (s *PostgresSource) codeMap(ctx context.Context, query string) (map[int64]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference data: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var code, id string
		if err := rows.Scan(&code, &id); err != nil {
			return nil, fmt.Errorf("failed to scan reference row: %w", err)
		}
		// 숫자 코드만 매핑 대상
		if n, ok := numericCode(code); ok {
			out[n] = id
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reference rows: %w", err)
	}
	return out, nil
}
