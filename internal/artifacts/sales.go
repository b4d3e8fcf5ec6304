package artifacts

import (
	"fmt"

	"github.com/wonny/supplycast/internal/contracts"
)

// 판매 artifact 컬럼
const (
	ColDate    = "Fecha"
	ColArticle = "Codigo_Articulo"
	ColBranch  = "Sucursal"
	ColUnits   = "Unidades"
	ColPrice   = "Precio"
	ColCost    = "Costo"
	ColFamily  = "Familia"
	ColRubro   = "Rubro"
)

var salesColumns = []string{ColDate, ColArticle, ColBranch, ColUnits}

var salesDetailColumns = []string{ColDate, ColArticle, ColBranch, ColUnits, ColPrice, ColCost, ColFamily, ColRubro}

// SalesDetail is one upstream sales line with its price context
type SalesDetail struct {
	contracts.SalesRecord
	Price  float64
	Cost   float64
	Family int64
	Rubro  int64
}

// WriteSales writes the compact (date, article, branch, units) artifact
func WriteSales(path string, sales []contracts.SalesRecord) error {
	rows := make([][]string, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, salesFields(s))
	}
	return WriteTable(path, salesColumns, rows)
}

// WriteSalesDetail writes the merged sales cache including price context
func WriteSalesDetail(path string, lines []SalesDetail) error {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, append(salesFields(l.SalesRecord),
			formatFloat(l.Price), formatFloat(l.Cost), formatInt(l.Family), formatInt(l.Rubro)))
	}
	return WriteTable(path, salesDetailColumns, rows)
}

// ReadSales reads the compact or the detailed sales artifact.
// Codes are coerced to integers and dates to calendar dates.
func ReadSales(path string) ([]contracts.SalesRecord, error) {
	records, err := ReadTable(path, salesColumns...)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.SalesRecord, 0, len(records))
	for _, rec := range records {
		d := decoder{rec: rec}
		s := contracts.SalesRecord{
			Date:    d.date(ColDate),
			Article: d.int(ColArticle),
			Branch:  d.int(ColBranch),
			Units:   d.float(ColUnits),
		}
		if d.err != nil {
			return nil, fmt.Errorf("%s: %w", path, d.err)
		}
		out = append(out, s)
	}
	return out, nil
}

func salesFields(s contracts.SalesRecord) []string {
	return []string{formatDate(s.Date), formatInt(s.Article), formatInt(s.Branch), formatFloat(s.Units)}
}
