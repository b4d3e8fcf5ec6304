package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/contracts"
)

// Source is the authoritative item-master / sales feed
type Source interface {
	// Items returns replenishment-enabled, active items of the supplier.
	// Null stock days become window, null over-stock days become 0.
	Items(ctx context.Context, supplier int64, window int) ([]contracts.ItemMaster, error)

	// Sales returns the supplier's sales lines from floor onwards, ordered by date
	Sales(ctx context.Context, supplier int64, floor time.Time) ([]artifacts.SalesDetail, error)
}

// 업스트림 필터 값
const (
	enabledForReplenishment = "S"
	notDiscontinued         = "N"
)

// WarehouseSource reads the upstream warehouse through sqlx
type WarehouseSource struct {
	db *sqlx.DB
}

// NewWarehouseSource 새 업스트림 소스 생성
func NewWarehouseSource(db *sqlx.DB) *WarehouseSource {
	return &WarehouseSource{db: db}
}

type itemRow struct {
	SupplierCode     int64      `db:"c_proveedor_primario"`
	Article          int64      `db:"c_articulo"`
	Branch           int64      `db:"c_sucu_empr"`
	SalePrice        *float64   `db:"i_precio_vta"`
	StatisticalCost  *float64   `db:"i_costo_estadistico"`
	SalesFactor      *float64   `db:"q_factor_vta_sucu"`
	StockUnits       *float64   `db:"q_stock_unidades"`
	LastSale         *time.Time `db:"f_ultima_vta"`
	Sales15Days      *float64   `db:"q_vta_ultimos_15dias"`
	Sales30Days      *float64   `db:"q_vta_ultimos_30dias"`
	PendingTransfers *float64   `db:"q_transf_pend"`
	Family           *int64     `db:"c_familia"`
	Rubro            *int64     `db:"c_rubro"`
	DaysWithStock    *float64   `db:"q_dias_con_stock"`
	OnOffer          *string    `db:"m_oferta_sucu"`
	ToReplenish      *float64   `db:"q_reponer"`
	NormalDailySales *float64   `db:"q_venta_diaria_normal"`
	StockDays        *float64   `db:"q_dias_stock"`
	OverStockDays    *float64   `db:"q_dias_sobre_stock"`
	SupplierLeadDays *float64   `db:"q_dias_entrega_proveedor"`
}

// ItemsQuery builds the item-master query for one supplier
func ItemsQuery(supplier int64) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"a.c_proveedor_primario",
		"s.c_articulo",
		"s.c_sucu_empr",
		"s.i_precio_vta",
		"s.i_costo_estadistico",
		"s.q_factor_vta_sucu",
		"s.q_stock_unidades",
		"s.f_ultima_vta",
		"s.q_vta_ultimos_15dias",
		"s.q_vta_ultimos_30dias",
		"s.q_transf_pend",
		"a.c_familia",
		"a.c_rubro",
		"r.q_dias_con_stock",
		"s.m_oferta_sucu",
		"r.q_reponer",
		"r.q_venta_diaria_normal",
		"r.q_dias_stock",
		"r.q_dias_sobre_stock",
		"r.q_dias_entrega_proveedor",
	)
	sb.From("t051_articulos_sucursal s")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "t050_articulos a", "a.c_articulo = s.c_articulo")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "t710_estadis_reposicion r",
		"r.c_articulo = s.c_articulo", "r.c_sucu_empr = s.c_sucu_empr")
	sb.Where(
		sb.Equal("s.m_habilitado_sucu", enabledForReplenishment),
		sb.Equal("a.m_baja", notDiscontinued),
		sb.Equal("a.c_proveedor_primario", supplier),
	)
	sb.OrderBy("s.c_articulo", "s.c_sucu_empr")

	return sb.Build()
}

// Items implements Source
func (w *WarehouseSource) Items(ctx context.Context, supplier int64, window int) ([]contracts.ItemMaster, error) {
	query, args := ItemsQuery(supplier)

	var rows []itemRow
	if err := w.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query item master: %w", err)
	}

	items := make([]contracts.ItemMaster, 0, len(rows))
	for _, r := range rows {
		items = append(items, contracts.ItemMaster{
			SupplierCode:     r.SupplierCode,
			Article:          r.Article,
			Branch:           r.Branch,
			SalePrice:        orZero(r.SalePrice),
			StatisticalCost:  orZero(r.StatisticalCost),
			SalesFactor:      orZero(r.SalesFactor),
			StockUnits:       orZero(r.StockUnits),
			LastSale:         r.LastSale,
			Sales15Days:      orZero(r.Sales15Days),
			Sales30Days:      orZero(r.Sales30Days),
			PendingTransfers: orZero(r.PendingTransfers),
			Family:           orZero(r.Family),
			Rubro:            orZero(r.Rubro),
			DaysWithStock:    orZero(r.DaysWithStock),
			OnOffer:          orZero(r.OnOffer),
			ToReplenish:      orZero(r.ToReplenish),
			NormalDailySales: orZero(r.NormalDailySales),
			StockDays:        int(orDefault(r.StockDays, float64(window))),
			OverStockDays:    int(orZero(r.OverStockDays)),
			SupplierLeadDays: orZero(r.SupplierLeadDays),
		})
	}
	return items, nil
}

type salesRow struct {
	Date    time.Time `db:"fecha"`
	Article int64     `db:"codigo_articulo"`
	Branch  int64     `db:"sucursal"`
	Price   *float64  `db:"precio"`
	Cost    *float64  `db:"costo"`
	Units   *float64  `db:"unidades"`
	Family  *int64    `db:"familia"`
	Rubro   *int64    `db:"rubro"`
}

// SalesQuery builds the sales-transaction query for one supplier
func SalesQuery(supplier int64, floor time.Time) (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		sb.As("v.f_venta", "fecha"),
		sb.As("v.c_articulo", "codigo_articulo"),
		sb.As("v.c_sucu_empr", "sucursal"),
		sb.As("v.i_precio_venta", "precio"),
		sb.As("v.i_precio_costo", "costo"),
		sb.As("v.q_unidades_vendidas", "unidades"),
		sb.As("v.c_familia", "familia"),
		sb.As("a.c_rubro", "rubro"),
	)
	sb.From("t702_est_vtas_por_articulo v")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "t050_articulos a", "v.c_articulo = a.c_articulo")
	sb.Where(
		sb.Equal("a.c_proveedor_primario", supplier),
		sb.GreaterEqualThan("v.f_venta", floor),
		sb.Equal("a.m_baja", notDiscontinued),
	)
	sb.OrderBy("v.f_venta")

	return sb.Build()
}

// Sales implements Source
func (w *WarehouseSource) Sales(ctx context.Context, supplier int64, floor time.Time) ([]artifacts.SalesDetail, error) {
	query, args := SalesQuery(supplier, floor)

	var rows []salesRow
	if err := w.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}

	out := make([]artifacts.SalesDetail, 0, len(rows))
	for _, r := range rows {
		y, m, d := r.Date.Date()
		out = append(out, artifacts.SalesDetail{
			SalesRecord: contracts.SalesRecord{
				Date:    time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
				Article: r.Article,
				Branch:  r.Branch,
				Units:   orZero(r.Units),
			},
			Price:  orZero(r.Price),
			Cost:   orZero(r.Cost),
			Family: orZero(r.Family),
			Rubro:  orZero(r.Rubro),
		})
	}
	return out, nil
}

func orZero[T any](v *T) T {
	var zero T
	return orDefault(v, zero)
}

func orDefault[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
