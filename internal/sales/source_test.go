package sales

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestItemsQuery(t *testing.T) {
	query, args := ItemsQuery(20)

	assert.Contains(t, query, "FROM t051_articulos_sucursal s")
	assert.Contains(t, query, "LEFT JOIN t050_articulos a ON a.c_articulo = s.c_articulo")
	assert.Contains(t, query, "r.c_articulo = s.c_articulo AND r.c_sucu_empr = s.c_sucu_empr")
	assert.Contains(t, query, "s.m_habilitado_sucu = $1")
	assert.Contains(t, query, "ORDER BY s.c_articulo, s.c_sucu_empr")
	assert.Equal(t, []interface{}{"S", "N", int64(20)}, args)
}

func TestSalesQuery(t *testing.T) {
	floor := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := SalesQuery(20, floor)

	assert.Contains(t, query, "v.f_venta AS fecha")
	assert.Contains(t, query, "v.f_venta >= $2")
	assert.Contains(t, query, "ORDER BY v.f_venta")
	assert.Equal(t, []interface{}{int64(20), floor, "N"}, args)
}

func TestWarehouseSource_Items(t *testing.T) {
	db, mock := newMockDB(t)
	last := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"c_proveedor_primario", "c_articulo", "c_sucu_empr", "i_precio_vta", "i_costo_estadistico",
		"f_ultima_vta", "c_familia", "m_oferta_sucu", "q_dias_stock", "q_dias_sobre_stock",
	}).
		AddRow(int64(20), int64(100), int64(1), 12.5, 8.0, last, int64(3), "N", nil, nil).
		AddRow(int64(20), int64(101), int64(2), nil, nil, nil, nil, nil, 15.0, 4.0)

	mock.ExpectQuery(regexp.QuoteMeta("FROM t051_articulos_sucursal s")).
		WithArgs("S", "N", int64(20)).
		WillReturnRows(rows)

	items, err := NewWarehouseSource(db).Items(context.Background(), 20, 45)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 12.5, items[0].SalePrice)
	assert.Equal(t, &last, items[0].LastSale)
	assert.Equal(t, int64(3), items[0].Family)
	assert.Equal(t, 45, items[0].StockDays, "null stock days fall back to the window")
	assert.Equal(t, 0, items[0].OverStockDays)

	assert.Nil(t, items[1].LastSale)
	assert.Equal(t, 0.0, items[1].SalePrice)
	assert.Equal(t, 15, items[1].StockDays)
	assert.Equal(t, 4, items[1].OverStockDays)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseSource_Sales(t *testing.T) {
	db, mock := newMockDB(t)
	floor := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"fecha", "codigo_articulo", "sucursal", "precio", "costo", "unidades", "familia", "rubro"}).
		AddRow(time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC), int64(100), int64(1), 10.0, 7.0, 3.0, int64(5), nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM t702_est_vtas_por_articulo v")).
		WithArgs(int64(20), floor, "N").
		WillReturnRows(rows)

	lines, err := NewWarehouseSource(db).Sales(context.Background(), 20, floor)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), lines[0].Date)
	assert.Equal(t, 3.0, lines[0].Units)
	assert.Equal(t, int64(5), lines[0].Family)
	assert.Equal(t, int64(0), lines[0].Rubro)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseSource_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("t051_articulos_sucursal").WillReturnError(assert.AnError)

	_, err := NewWarehouseSource(db).Items(context.Background(), 20, 30)
	assert.ErrorIs(t, err, assert.AnError)
}
