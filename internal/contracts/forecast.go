package contracts

import "time"

// SeriesKey identifies one (article, branch) sales series
type SeriesKey struct {
	Article int64 `json:"codigo_articulo"`
	Branch  int64 `json:"sucursal"`
}

// SalesRecord is one (date, units) observation of a series
type SalesRecord struct {
	Date    time.Time `json:"fecha"`
	Article int64     `json:"codigo_articulo"`
	Branch  int64     `json:"sucursal"`
	Units   float64   `json:"unidades"`
}

// Key returns the series key of the record
func (r SalesRecord) Key() SeriesKey {
	return SeriesKey{Article: r.Article, Branch: r.Branch}
}

// ItemMaster holds the stock / replenishment attributes of one (article, branch)
type ItemMaster struct {
	SupplierCode     int64      `json:"c_proveedor_primario"`
	Article          int64      `json:"c_articulo"`
	Branch           int64      `json:"c_sucu_empr"`
	SalePrice        float64    `json:"i_precio_vta"`
	StatisticalCost  float64    `json:"i_costo_estadistico"`
	SalesFactor      float64    `json:"q_factor_vta_sucu"`
	StockUnits       float64    `json:"q_stock_unidades"`
	LastSale         *time.Time `json:"f_ultima_vta,omitempty"`
	Sales15Days      float64    `json:"q_vta_ultimos_15dias"`
	Sales30Days      float64    `json:"q_vta_ultimos_30dias"`
	PendingTransfers float64    `json:"q_transf_pend"`
	Family           int64      `json:"c_familia"`
	Rubro            int64      `json:"c_rubro"`
	DaysWithStock    float64    `json:"q_dias_con_stock"`
	OnOffer          string     `json:"m_oferta_sucu"`
	ToReplenish      float64    `json:"q_reponer"`
	NormalDailySales float64    `json:"q_venta_diaria_normal"`
	StockDays        int        `json:"q_dias_stock"`
	OverStockDays    int        `json:"q_dias_sobre_stock"`
	SupplierLeadDays float64    `json:"q_dias_entrega_proveedor"`
}

// Key returns the series key of the item
func (m ItemMaster) Key() SeriesKey {
	return SeriesKey{Article: m.Article, Branch: m.Branch}
}

// ForecastRow is one algorithm's output for one (article, branch)
type ForecastRow struct {
	SupplierCode  int64     `json:"id_proveedor"`
	Article       int64     `json:"codigo_articulo"`
	Branch        int64     `json:"sucursal"`
	Algorithm     Algorithm `json:"algoritmo"`
	Window        int       `json:"ventana"`
	Forecast      float64   `json:"forecast"` // 정수 단위, 항상 >= 0
	Average       float64   `json:"average"`
	SalesLast     float64   `json:"ventas_last"`
	SalesPrevious float64   `json:"ventas_previous"`
	SalesSameYear float64   `json:"ventas_same_year"`

	// FitFailed marks a series whose model fit failed; Forecast is the
	// null-filled value (0) in that case. Not persisted.
	FitFailed bool `json:"-"`
}

// Key returns the series key of the row
func (r ForecastRow) Key() SeriesKey {
	return SeriesKey{Article: r.Article, Branch: r.Branch}
}

// ExtendedRow is a ForecastRow merged with canonical ids and item master context
type ExtendedRow struct {
	ForecastRow
	ProductID string     `json:"product_id"`
	SiteID    string     `json:"site_id"`
	Item      ItemMaster `json:"item"`
	HasItem   bool       `json:"-"`
}

// ChartedRow is an ExtendedRow with its rendered diagnostic chart and confidence bounds
type ChartedRow struct {
	ExtendedRow
	Graphic         string  `json:"grafico"`
	ConfidenceLevel float64 `json:"confidence_level"`
	ErrorMargin     float64 `json:"error_margin"`
	LowerBound      float64 `json:"lower_bound"`
	UpperBound      float64 `json:"upper_bound"`
}

// ExecutionExecuteResult is the published per-(article, branch) record
type ExecutionExecuteResult struct {
	ID                 string    `json:"id"`
	ExecuteID          string    `json:"supply_forecast_execution_execute_id"`
	Timestamp          time.Time `json:"timestamp"`
	ProductID          string    `json:"product_id"`
	SiteID             string    `json:"site_id"`
	SupplierID         string    `json:"supplier_id"`
	ExtProductCode     int64     `json:"ext_product_code"`
	ExtSiteCode        int64     `json:"ext_site_code"`
	ExtSupplierCode    int64     `json:"ext_supplier_code"`
	Algorithm          Algorithm `json:"algorithm"`
	Window             int       `json:"windows"`
	ExpectedDemand     float64   `json:"expected_demand"`
	Forecast           float64   `json:"forcast"`
	Average            float64   `json:"average"`
	AverageDailyDemand float64   `json:"average_daily_demand"`
	ConfidenceLevel    float64   `json:"confidence_level"`
	ErrorMargin        float64   `json:"error_margin"`
	LowerBound         float64   `json:"lower_bound"`
	UpperBound         float64   `json:"upper_bound"`
	Graphic            string    `json:"graphic"`
	QuantityStock      float64   `json:"quantity_stock"`
	SalesLast          float64   `json:"sales_last"`
	SalesPrevious      float64   `json:"sales_previous"`
	SalesSameYear      float64   `json:"sales_same_year"`
	DeliveriesPending  float64   `json:"deliveries_pending"`
	QuantityConfirmed  float64   `json:"quantity_confirmed"`
	Approved           bool      `json:"approved"`
	BasePurchasePrice  float64   `json:"base_purchase_price"`
	StatisticBasePrice float64   `json:"statistic_base_price"`
	SalesPrice         float64   `json:"sales_price"`
	DistributionUnit   string    `json:"distribution_unit"`
	PurchaseUnit       string    `json:"purchase_unit"`
	LayerPallet        int       `json:"layer_pallet"`
	NumberLayerPallet  int       `json:"number_layer_pallet"`
	WindowSalesDays    int       `json:"window_sales_days"`
}

// BestAlgorithm is the consolidator's rank-1 algorithm for one article
type BestAlgorithm struct {
	Article        int64     `json:"codigo_articulo"`
	Algorithm      Algorithm `json:"algoritmo_optimo"`
	MAE            float64   `json:"mae"`
	RMSE           float64   `json:"rmse"`
	SMAPE          float64   `json:"smape"`
	EvaluationDate time.Time `json:"fecha_evaluacion"`
}

// ErrorMetrics are the accuracy scores of one (article, algorithm)
type ErrorMetrics struct {
	Article   int64     `json:"codigo_articulo"`
	Algorithm Algorithm `json:"algoritmo"`
	MAE       float64   `json:"mae"`
	RMSE      float64   `json:"rmse"`
	SMAPE     float64   `json:"smape"`
	Samples   int       `json:"samples"`
}
