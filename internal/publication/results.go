package publication

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/supplycast/internal/contracts"
)

// 결과 행 기본값
const (
	defaultUnit        = "UN"
	defaultLayerPallet = 1
)

// ErrMissingIDs is returned when a charted row has no product_id or site_id
var ErrMissingIDs = errors.New("rows without product_id or site_id")

// BuildResults maps charted rows to result records of one execute.
// Any row without canonical ids aborts the whole build.
func BuildResults(executeID, supplierID string, rows []contracts.ChartedRow, now time.Time) ([]contracts.ExecutionExecuteResult, error) {
	missing := 0
	for _, r := range rows {
		if r.ProductID == "" || r.SiteID == "" {
			missing++
		}
	}
	if missing > 0 {
		return nil, fmt.Errorf("%w: %d of %d", ErrMissingIDs, missing, len(rows))
	}

	ts := now.UTC()
	out := make([]contracts.ExecutionExecuteResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, contracts.ExecutionExecuteResult{
			ID:                 uuid.NewString(),
			ExecuteID:          executeID,
			Timestamp:          ts,
			ProductID:          r.ProductID,
			SiteID:             r.SiteID,
			SupplierID:         supplierID,
			ExtProductCode:     r.Article,
			ExtSiteCode:        r.Branch,
			ExtSupplierCode:    r.SupplierCode,
			Algorithm:          r.Algorithm,
			Window:             r.Window,
			ExpectedDemand:     r.Forecast,
			Forecast:           r.Forecast,
			Average:            r.Average,
			AverageDailyDemand: r.Average,
			ConfidenceLevel:    r.ConfidenceLevel,
			ErrorMargin:        r.ErrorMargin,
			LowerBound:         r.LowerBound,
			UpperBound:         r.UpperBound,
			Graphic:            r.Graphic,
			QuantityStock:      r.Item.StockUnits,
			SalesLast:          r.SalesLast,
			SalesPrevious:      r.SalesPrevious,
			SalesSameYear:      r.SalesSameYear,
			DeliveriesPending:  r.Item.PendingTransfers,
			QuantityConfirmed:  r.Forecast,
			Approved:           true,
			BasePurchasePrice:  r.Item.StatisticalCost,
			StatisticBasePrice: r.Item.StatisticalCost,
			SalesPrice:         r.Item.SalePrice,
			DistributionUnit:   defaultUnit,
			PurchaseUnit:       defaultUnit,
			LayerPallet:        defaultLayerPallet,
			NumberLayerPallet:  defaultLayerPallet,
			WindowSalesDays:    r.Item.StockDays,
		})
	}
	return out, nil
}
