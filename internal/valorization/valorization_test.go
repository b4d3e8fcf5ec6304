package valorization

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/supplycast/internal/contracts"
)

func row(article, branch int64, forecast, price, cost float64) contracts.ExtendedRow {
	return contracts.ExtendedRow{
		ForecastRow: contracts.ForecastRow{Article: article, Branch: branch, Forecast: forecast},
		Item:        contracts.ItemMaster{Article: article, Branch: branch, SalePrice: price, StatisticalCost: cost},
		HasItem:     true,
	}
}

func TestValueLine(t *testing.T) {
	l := ValueLine(row(1, 1, 3, 1234.5, 1000.015))

	assert.True(t, l.Sales.Equal(decimal.RequireFromString("3.70")), l.Sales.String()) // 3.7035
	assert.True(t, l.Cost.Equal(decimal.RequireFromString("3.00")), l.Cost.String())   // 3.000045
	assert.True(t, l.Margin.Equal(decimal.RequireFromString("0.70")), l.Margin.String())

	missing := ValueLine(contracts.ExtendedRow{ForecastRow: contracts.ForecastRow{Forecast: 10}})
	assert.True(t, missing.Sales.IsZero())
	assert.True(t, missing.Units.Equal(decimal.NewFromInt(10)))
}

func TestValorize(t *testing.T) {
	rows := []contracts.ExtendedRow{
		row(1, 1, 1000, 2500, 2000), // 2500.00 / 2000.00
		row(1, 2, 500, 2500, 2000),  // 1250.00 / 1000.00
		row(2, 1, 10, 99.99, 50),    // 1.00 / 0.50
	}

	s := Valorize(rows)
	require.Len(t, s.Lines, 3)
	assert.Equal(t, 2, s.Products)
	assert.Equal(t, "3.75", s.SalesInMillions.String())  // 3751.00 / 1000
	assert.Equal(t, "3", s.PurchasesInMillions.String()) // 3000.50 / 1000 = 3.0005 → 3.00
	assert.Equal(t, "0.75", s.MarginInMillions.String())
	assert.Equal(t, "1510", s.Units.String())

	h := s.Header("png")
	assert.Equal(t, contracts.HeaderMetrics{
		MonthlySalesInMillions:     3.75,
		MonthlyPurchasesInMillions: 3,
		MonthlyNetMarginInMillions: 0.75,
		TotalProducts:              2,
		TotalUnits:                 1510,
		Graphic:                    "png",
	}, h)
}

func TestValorize_Empty(t *testing.T) {
	s := Valorize(nil)
	assert.Equal(t, 0, s.Products)
	assert.True(t, s.SalesInMillions.IsZero())
	assert.Equal(t, 0.0, s.Header("").TotalUnits)
}

func TestCharted(t *testing.T) {
	charted := []contracts.ChartedRow{{ExtendedRow: row(7, 1, 1, 1, 1), Graphic: "x"}}
	ext := Charted(charted)
	require.Len(t, ext, 1)
	assert.Equal(t, int64(7), ext[0].Article)
}
