package publication

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/pkg/metrics"
)

// ResultTable is the downstream per-(article, branch) result table
const ResultTable = "spl_supply_forecast_execution_execute_result"

// ErrPartialPublish is returned when fewer rows were committed than intended
var ErrPartialPublish = errors.New("partial publish")

// beginner is satisfied by *pgxpool.Pool
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var resultColumns = []string{
	"id", "supply_forecast_execution_execute_id", `"timestamp"`, "product_id", "site_id", "supplier_id",
	"ext_product_code", "ext_site_code", "ext_supplier_code", "algorithm", "windows",
	"expected_demand", "forcast", "average", "average_daily_demand",
	"confidence_level", "error_margin", "lower_bound", "upper_bound", "graphic",
	"quantity_stock", "sales_last", "sales_previous", "sales_same_year",
	"deliveries_pending", "quantity_confirmed", "approved",
	"base_purchase_price", "statistic_base_price", "sales_price",
	"distribution_unit", "purchase_unit", "layer_pallet", "number_layer_pallet", "window_sales_days",
}

// Adapter inserts result rows in fixed-size batches, one transaction per batch
// ⭐ SSOT: downstream 결과 게시는 여기서만
type Adapter struct {
	db        beginner
	batchSize int
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewAdapter 새 publication adapter 생성.
// batchesPerSecond <= 0 disables pacing.
func NewAdapter(db beginner, batchSize int, batchesPerSecond float64, log zerolog.Logger) *Adapter {
	if batchSize <= 0 {
		batchSize = 500
	}
	limit := rate.Inf
	if batchesPerSecond > 0 {
		limit = rate.Limit(batchesPerSecond)
	}
	return &Adapter{
		db:        db,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log.With().Str("component", "publication.adapter").Logger(),
	}
}

// InsertQuery returns the single-row insert for destination
func InsertQuery(destination string) string {
	placeholders := make([]string, len(resultColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{destination}.Sanitize(),
		strings.Join(resultColumns, ", "),
		strings.Join(placeholders, ", "))
}

func resultArgs(r contracts.ExecutionExecuteResult) []any {
	var supplier any
	if r.SupplierID != "" {
		supplier = r.SupplierID
	}
	return []any{
		r.ID, r.ExecuteID, r.Timestamp, r.ProductID, r.SiteID, supplier,
		r.ExtProductCode, r.ExtSiteCode, r.ExtSupplierCode, string(r.Algorithm), r.Window,
		r.ExpectedDemand, r.Forecast, r.Average, r.AverageDailyDemand,
		r.ConfidenceLevel, r.ErrorMargin, r.LowerBound, r.UpperBound, r.Graphic,
		r.QuantityStock, r.SalesLast, r.SalesPrevious, r.SalesSameYear,
		r.DeliveriesPending, r.QuantityConfirmed, r.Approved,
		r.BasePurchasePrice, r.StatisticBasePrice, r.SalesPrice,
		r.DistributionUnit, r.PurchaseUnit, r.LayerPallet, r.NumberLayerPallet, r.WindowSalesDays,
	}
}

// Publish inserts rows into destination and returns the committed count.
// A failing batch stops the run; earlier batches stay committed.
func (a *Adapter) Publish(ctx context.Context, rows []contracts.ExecutionExecuteResult, destination string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := InsertQuery(destination)
	total := (len(rows) + a.batchSize - 1) / a.batchSize
	inserted := 0

	for i := 0; i < total; i++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return inserted, err
		}

		start := i * a.batchSize
		end := min(start+a.batchSize, len(rows))
		if err := a.insertBatch(ctx, query, rows[start:end]); err != nil {
			a.log.Error().Err(err).
				Int("batch", i+1).
				Int("batches", total).
				Int("inserted", inserted).
				Msg("batch insert failed")
			return inserted, fmt.Errorf("batch %d/%d: %w", i+1, total, err)
		}

		inserted += end - start
		metrics.PublishedRowsTotal.Add(float64(end - start))
		a.log.Debug().Int("batch", i+1).Int("batches", total).Int("rows", end-start).Msg("batch committed")
	}

	a.log.Info().Int("rows", inserted).Int("batches", total).Str("destination", destination).Msg("publish complete")
	return inserted, nil
}

func (a *Adapter) insertBatch(ctx context.Context, query string, rows []contracts.ExecutionExecuteResult) error {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query, resultArgs(r)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return tx.Commit(ctx)
}

// CheckComplete turns a short count into ErrPartialPublish
func CheckComplete(inserted, intended int, cause error) error {
	if inserted == intended && cause == nil {
		return nil
	}
	err := fmt.Errorf("%w: %d of %d rows committed", ErrPartialPublish, inserted, intended)
	if cause != nil {
		return errors.Join(err, cause)
	}
	return err
}
