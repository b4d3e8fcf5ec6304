package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/supplycast/internal/contracts"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSales_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20_ACME_Ventas.csv")
	sales := []contracts.SalesRecord{
		{Date: day(2024, 2, 29), Article: 9007199254740993, Branch: 41, Units: 3},
		{Date: day(2023, 12, 31), Article: 17, Branch: 1, Units: 0.5},
		{Date: day(2021, 1, 1), Article: 17, Branch: 2, Units: 0},
	}

	require.NoError(t, WriteSales(path, sales))
	got, err := ReadSales(path)
	require.NoError(t, err)

	assert.Equal(t, sales, got)
}

func TestReadSales_FromDetailedCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20_ACME.csv")
	lines := []SalesDetail{
		{SalesRecord: contracts.SalesRecord{Date: day(2024, 1, 3), Article: 5, Branch: 2, Units: 7}, Price: 10.5, Cost: 6, Family: 3, Rubro: 4},
	}

	require.NoError(t, WriteSalesDetail(path, lines))
	got, err := ReadSales(path)
	require.NoError(t, err)

	assert.Equal(t, []contracts.SalesRecord{lines[0].SalesRecord}, got)
}

func TestReadSales_PandasStyleValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	content := "\ufeffFecha,Codigo_Articulo,Sucursal,Unidades\n" +
		"2024-03-01 00:00:00,123.0,7,2.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadSales(path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, day(2024, 3, 1), got[0].Date)
	assert.Equal(t, int64(123), got[0].Article)
	assert.Equal(t, int64(7), got[0].Branch)
	assert.Equal(t, 2.0, got[0].Units)
}

func TestReadTable_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSales(filepath.Join(dir, "absent.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Fecha,Codigo_Articulo\n2024-01-01,1\n"), 0o644))
	_, err = ReadSales(path)
	assert.ErrorIs(t, err, ErrMissingColumn)

	require.NoError(t, os.WriteFile(path, []byte("Fecha,Codigo_Articulo,Sucursal,Unidades\nnot-a-date,1,1,1\n"), 0o644))
	_, err = ReadSales(path)
	assert.Error(t, err)
}

func TestItems_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20_ACME_Articulos.csv")
	last := day(2024, 5, 1)
	items := []contracts.ItemMaster{
		{
			SupplierCode: 20, Article: 100, Branch: 1,
			SalePrice: 1200.5, StatisticalCost: 800.25, SalesFactor: 1,
			StockUnits: 40, LastSale: &last, Sales15Days: 12, Sales30Days: 25,
			PendingTransfers: 2, Family: 8, Rubro: 9, DaysWithStock: 28,
			OnOffer: "N", ToReplenish: 10, NormalDailySales: 0.8,
			StockDays: 30, OverStockDays: 0, SupplierLeadDays: 4,
		},
		{SupplierCode: 20, Article: 101, Branch: 1, StockDays: 45},
	}

	require.NoError(t, WriteItems(path, items))
	got, err := ReadItems(path)
	require.NoError(t, err)

	assert.Equal(t, items, got)
}

func TestForecast_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20_ACME_ALGO_01_Solicitudes_Compra.csv")
	rows := []contracts.ForecastRow{
		{SupplierCode: 20, Article: 100, Branch: 1, Algorithm: contracts.AlgoWeightedAverage, Window: 30,
			Forecast: 35, Average: 1.167, SalesLast: 30, SalesPrevious: 60, SalesSameYear: 11},
	}

	require.NoError(t, WriteForecast(path, rows))
	got, err := ReadForecast(path)
	require.NoError(t, err)

	assert.Equal(t, rows, got)
}

func TestExtendedAndCharted_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := contracts.ForecastRow{SupplierCode: 20, Article: 100, Branch: 1, Algorithm: contracts.AlgoHolt, Window: 28, Forecast: 12, Average: 0.429}

	extended := []contracts.ExtendedRow{
		{
			ForecastRow: base,
			ProductID:   "7b0c2c3e-3c5f-4f6a-9d55-2f1f6f1f0a01",
			SiteID:      "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0",
			Item:        contracts.ItemMaster{SupplierCode: 20, Article: 100, Branch: 1, SalePrice: 10, StockDays: 28},
			HasItem:     true,
		},
		{
			ForecastRow: contracts.ForecastRow{SupplierCode: 20, Article: 101, Branch: 1, Algorithm: contracts.AlgoHolt, Window: 28},
			ProductID:   "p2",
			SiteID:      "s2",
		},
	}

	extPath := filepath.Join(dir, "ext.csv")
	require.NoError(t, WriteExtended(extPath, extended))
	gotExt, err := ReadExtended(extPath)
	require.NoError(t, err)
	assert.Equal(t, extended, gotExt)

	charted := []contracts.ChartedRow{{
		ExtendedRow:     extended[0],
		Graphic:         "iVBORw0KGgo=",
		ConfidenceLevel: 0.95,
		ErrorMargin:     3.5,
		LowerBound:      8.5,
		UpperBound:      15.5,
	}}
	chPath := filepath.Join(dir, "final.csv")
	require.NoError(t, WriteCharted(chPath, charted))
	gotCh, err := ReadCharted(chPath)
	require.NoError(t, err)
	assert.Equal(t, charted, gotCh)
}

func TestWriteMissingMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	require.NoError(t, WriteMissingMapping(path, []contracts.SeriesKey{{Article: 1, Branch: 2}}))

	records, err := ReadTable(path, ColArticle, ColBranch)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].Str(ColArticle))
	assert.Equal(t, "2", records[0].Str(ColBranch))
}

func TestLayout(t *testing.T) {
	l := NewLayout("/data")

	assert.Equal(t, "/data/20_ACME.csv", l.Sales("20_ACME"))
	assert.Equal(t, "/data/20_ACME_Ventas.csv", l.SalesCompact("20_ACME"))
	assert.Equal(t, "/data/20_ACME_Articulos.csv", l.Items("20_ACME"))
	assert.Equal(t, "/data/20_ACME_ALGO_02_Solicitudes_Compra.csv", l.Forecast("20_ACME_ALGO_02"))
	assert.Equal(t, "/data/20_ACME_ALGO_02_Pronostico_Extendido_Con_Graficos.csv", l.Checkpoint("20_ACME_ALGO_02"))
	assert.Equal(t, "/data/20_ACME_ALGO_02_Pronostico_Extendido_FINAL.csv", l.Final("20_ACME_ALGO_02"))
	assert.Equal(t, "/data/20_Backtest.csv", l.Backtest(20))
	assert.Len(t, l.PublishedArtifacts("x"), 3)
}
