package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/wonny/supplycast/internal/contracts"
)

const prechargeTable = "f_oc_precarga_connexa"

// PrechargeExporter writes computed forecasts into the upstream purchase pre-load table
type PrechargeExporter struct {
	db   *sqlx.DB
	user string
	now  func() time.Time
	log  zerolog.Logger
}

// NewPrechargeExporter 새 precharge exporter 생성
func NewPrechargeExporter(db *sqlx.DB, user string, log zerolog.Logger) *PrechargeExporter {
	return &PrechargeExporter{
		db:   db,
		user: user,
		now:  time.Now,
		log:  log.With().Str("component", "sales.precharge").Logger(),
	}
}

// PrechargeInsert builds the multi-row insert for rows
func PrechargeInsert(supplier int64, rows []contracts.ForecastRow, user string, today time.Time) (string, []interface{}) {
	day := today.Format("2006-01-02")

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(prechargeTable)
	ib.Cols("c_proveedor", "c_articulo", "c_sucu_empr", "q_forecast_unidades", "f_alta_forecast", "c_usuario_forecast", "create_date")
	for _, r := range rows {
		ib.Values(supplier, r.Article, r.Branch, r.Forecast, day, user, day)
	}
	return ib.Build()
}

// Export inserts rows in one transaction and returns the inserted count
func (e *PrechargeExporter) Export(ctx context.Context, supplier int64, rows []contracts.ForecastRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin precharge tx: %w", err)
	}
	defer tx.Rollback()

	query, args := PrechargeInsert(supplier, rows, e.user, e.now())
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert precharge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit precharge: %w", err)
	}

	n, _ := res.RowsAffected()
	e.log.Info().Int64("supplier", supplier).Int64("rows", n).Msg("precharge exported")
	return int(n), nil
}
