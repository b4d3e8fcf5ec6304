package artifacts

import (
	"fmt"

	"github.com/wonny/supplycast/internal/contracts"
)

// forecast artifact 컬럼
const (
	ColSupplierID    = "id_proveedor"
	ColAlgorithm     = "algoritmo"
	ColWindow        = "ventana"
	ColForecast      = "Forecast"
	ColAverage       = "Average"
	ColSalesLast     = "ventas_last"
	ColSalesPrevious = "ventas_previous"
	ColSalesSameYear = "ventas_same_year"

	ColProductID = "product_id"
	ColSiteID    = "site_id"

	ColGraphic         = "GRAFICO"
	ColConfidenceLevel = "confidence_level"
	ColErrorMargin     = "error_margin"
	ColLowerBound      = "lower_bound"
	ColUpperBound      = "upper_bound"
)

// ForecastColumns is the standardized algorithm output column order
var ForecastColumns = []string{
	ColSupplierID, ColArticle, ColBranch, ColAlgorithm, ColWindow,
	ColForecast, ColAverage, ColSalesLast, ColSalesPrevious, ColSalesSameYear,
}

var extendedColumns = concat(ForecastColumns, []string{ColProductID, ColSiteID}, itemColumns)

var chartedColumns = concat(extendedColumns, []string{
	ColGraphic, ColConfidenceLevel, ColErrorMargin, ColLowerBound, ColUpperBound,
})

// WriteForecast writes the algorithm output
func WriteForecast(path string, rows []contracts.ForecastRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, forecastFields(r))
	}
	return WriteTable(path, ForecastColumns, out)
}

// ReadForecast reads an algorithm output artifact
func ReadForecast(path string) ([]contracts.ForecastRow, error) {
	records, err := ReadTable(path, ForecastColumns...)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.ForecastRow, 0, len(records))
	for _, rec := range records {
		d := decoder{rec: rec}
		r := decodeForecast(&d)
		if d.err != nil {
			return nil, fmt.Errorf("%s: %w", path, d.err)
		}
		out = append(out, r)
	}
	return out, nil
}

// WriteExtended writes forecast rows merged with ids and item master
func WriteExtended(path string, rows []contracts.ExtendedRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, extendedFields(r))
	}
	return WriteTable(path, extendedColumns, out)
}

// ReadExtended reads an extended artifact
func ReadExtended(path string) ([]contracts.ExtendedRow, error) {
	records, err := ReadTable(path, concat(ForecastColumns, []string{ColProductID, ColSiteID})...)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.ExtendedRow, 0, len(records))
	for _, rec := range records {
		d := decoder{rec: rec}
		r := decodeExtended(&d)
		if d.err != nil {
			return nil, fmt.Errorf("%s: %w", path, d.err)
		}
		out = append(out, r)
	}
	return out, nil
}

// WriteCharted writes charted rows (checkpoint and FINAL share the layout)
func WriteCharted(path string, rows []contracts.ChartedRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, append(extendedFields(r.ExtendedRow),
			r.Graphic,
			formatFloat(r.ConfidenceLevel),
			formatFloat(r.ErrorMargin),
			formatFloat(r.LowerBound),
			formatFloat(r.UpperBound),
		))
	}
	return WriteTable(path, chartedColumns, out)
}

// ReadCharted reads a checkpoint or FINAL artifact
func ReadCharted(path string) ([]contracts.ChartedRow, error) {
	records, err := ReadTable(path, concat(ForecastColumns, []string{ColProductID, ColSiteID, ColGraphic})...)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.ChartedRow, 0, len(records))
	for _, rec := range records {
		d := decoder{rec: rec}
		r := contracts.ChartedRow{
			ExtendedRow:     decodeExtended(&d),
			Graphic:         d.str(ColGraphic),
			ConfidenceLevel: d.float(ColConfidenceLevel),
			ErrorMargin:     d.float(ColErrorMargin),
			LowerBound:      d.float(ColLowerBound),
			UpperBound:      d.float(ColUpperBound),
		}
		if d.err != nil {
			return nil, fmt.Errorf("%s: %w", path, d.err)
		}
		out = append(out, r)
	}
	return out, nil
}

// WriteMissingMapping lists the distinct unmapped (article, branch) pairs
func WriteMissingMapping(path string, keys []contracts.SeriesKey) error {
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{formatInt(k.Article), formatInt(k.Branch)})
	}
	return WriteTable(path, []string{ColArticle, ColBranch}, rows)
}

func forecastFields(r contracts.ForecastRow) []string {
	return []string{
		formatInt(r.SupplierCode),
		formatInt(r.Article),
		formatInt(r.Branch),
		string(r.Algorithm),
		formatInt(int64(r.Window)),
		formatFloat(r.Forecast),
		formatFloat(r.Average),
		formatFloat(r.SalesLast),
		formatFloat(r.SalesPrevious),
		formatFloat(r.SalesSameYear),
	}
}

func decodeForecast(d *decoder) contracts.ForecastRow {
	return contracts.ForecastRow{
		SupplierCode:  d.int(ColSupplierID),
		Article:       d.int(ColArticle),
		Branch:        d.int(ColBranch),
		Algorithm:     contracts.Algorithm(d.str(ColAlgorithm)),
		Window:        int(d.int(ColWindow)),
		Forecast:      d.float(ColForecast),
		Average:       d.float(ColAverage),
		SalesLast:     d.float(ColSalesLast),
		SalesPrevious: d.float(ColSalesPrevious),
		SalesSameYear: d.float(ColSalesSameYear),
	}
}

func extendedFields(r contracts.ExtendedRow) []string {
	fields := append(forecastFields(r.ForecastRow), r.ProductID, r.SiteID)
	if !r.HasItem {
		return append(fields, make([]string, len(itemColumns))...)
	}
	return append(fields, itemFields(r.Item)...)
}

func decodeExtended(d *decoder) contracts.ExtendedRow {
	r := contracts.ExtendedRow{
		ForecastRow: decodeForecast(d),
		ProductID:   d.str(ColProductID),
		SiteID:      d.str(ColSiteID),
	}
	if d.rec.Has(ColItemArticle) {
		r.Item = decodeItem(d)
		r.HasItem = true
	}
	return r
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
