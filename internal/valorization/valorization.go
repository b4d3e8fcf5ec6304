// Package valorization prices a forecast run for the execute header.
package valorization

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/supplycast/internal/contracts"
)

var thousand = decimal.NewFromInt(1000)

// Line is one row valued in thousands
type Line struct {
	Key    contracts.SeriesKey
	Units  decimal.Decimal
	Sales  decimal.Decimal // forecast × 판매가 / 1000, 소수 2자리
	Cost   decimal.Decimal // forecast × 통계 원가 / 1000, 소수 2자리
	Margin decimal.Decimal // Sales - Cost
}

// Summary is the run total in millions
type Summary struct {
	Lines               []Line
	SalesInMillions     decimal.Decimal
	PurchasesInMillions decimal.Decimal
	MarginInMillions    decimal.Decimal
	Products            int
	Units               decimal.Decimal
}

// ValueLine prices one row from its merged item master; rows without item data price at zero
func ValueLine(r contracts.ExtendedRow) Line {
	units := decimal.NewFromFloat(r.Forecast)
	price, cost := decimal.Zero, decimal.Zero
	if r.HasItem {
		price = decimal.NewFromFloat(r.Item.SalePrice)
		cost = decimal.NewFromFloat(r.Item.StatisticalCost)
	}

	sales := units.Mul(price).Div(thousand).Round(2)
	purchases := units.Mul(cost).Div(thousand).Round(2)
	return Line{
		Key:    r.Key(),
		Units:  units,
		Sales:  sales,
		Cost:   purchases,
		Margin: sales.Sub(purchases),
	}
}

// Valorize totals rows into header metrics
// ⭐ SSOT: header 금액 계산은 여기서만
func Valorize(rows []contracts.ExtendedRow) Summary {
	s := Summary{Lines: make([]Line, 0, len(rows))}
	sales, cost, margin, units := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	articles := make(map[int64]struct{})

	for _, r := range rows {
		l := ValueLine(r)
		s.Lines = append(s.Lines, l)
		sales = sales.Add(l.Sales)
		cost = cost.Add(l.Cost)
		margin = margin.Add(l.Margin)
		units = units.Add(l.Units)
		articles[r.Article] = struct{}{}
	}

	s.SalesInMillions = sales.Div(thousand).Round(2)
	s.PurchasesInMillions = cost.Div(thousand).Round(2)
	s.MarginInMillions = margin.Div(thousand).Round(2)
	s.Products = len(articles)
	s.Units = units.Round(0)
	return s
}

// Header converts the summary into the execute header fields
func (s Summary) Header(graphic string) contracts.HeaderMetrics {
	return contracts.HeaderMetrics{
		MonthlySalesInMillions:     s.SalesInMillions.InexactFloat64(),
		MonthlyPurchasesInMillions: s.PurchasesInMillions.InexactFloat64(),
		MonthlyNetMarginInMillions: s.MarginInMillions.InexactFloat64(),
		TotalProducts:              s.Products,
		TotalUnits:                 s.Units.InexactFloat64(),
		Graphic:                    graphic,
	}
}

// Charted returns the extended part of charted rows
func Charted(rows []contracts.ChartedRow) []contracts.ExtendedRow {
	out := make([]contracts.ExtendedRow, len(rows))
	for i, r := range rows {
		out[i] = r.ExtendedRow
	}
	return out
}
