package artifacts

import (
	"fmt"

	"github.com/wonny/supplycast/internal/contracts"
)

// item master 컬럼 (upstream 원본 이름 유지)
const (
	ColSupplier         = "C_PROVEEDOR_PRIMARIO"
	ColItemArticle      = "C_ARTICULO"
	ColItemBranch       = "C_SUCU_EMPR"
	ColSalePrice        = "I_PRECIO_VTA"
	ColStatisticalCost  = "I_COSTO_ESTADISTICO"
	ColSalesFactor      = "Q_FACTOR_VTA_SUCU"
	ColStockUnits       = "Q_STOCK_UNIDADES"
	ColLastSale         = "F_ULTIMA_VTA"
	ColSales15Days      = "Q_VTA_ULTIMOS_15DIAS"
	ColSales30Days      = "Q_VTA_ULTIMOS_30DIAS"
	ColPendingTransfers = "Q_TRANSF_PEND"
	ColItemFamily       = "C_FAMILIA"
	ColItemRubro        = "C_RUBRO"
	ColDaysWithStock    = "Q_DIAS_CON_STOCK"
	ColOnOffer          = "M_OFERTA_SUCU"
	ColToReplenish      = "Q_REPONER"
	ColNormalDailySales = "Q_VENTA_DIARIA_NORMAL"
	ColStockDays        = "Q_DIAS_STOCK"
	ColOverStockDays    = "Q_DIAS_SOBRE_STOCK"
	ColSupplierLeadDays = "Q_DIAS_ENTREGA_PROVEEDOR"
)

var itemColumns = []string{
	ColSupplier, ColItemArticle, ColItemBranch, ColSalePrice, ColStatisticalCost,
	ColSalesFactor, ColStockUnits, ColLastSale, ColSales15Days, ColSales30Days,
	ColPendingTransfers, ColItemFamily, ColItemRubro, ColDaysWithStock, ColOnOffer,
	ColToReplenish, ColNormalDailySales, ColStockDays, ColOverStockDays, ColSupplierLeadDays,
}

// WriteItems writes the item master cache
func WriteItems(path string, items []contracts.ItemMaster) error {
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		rows = append(rows, itemFields(m))
	}
	return WriteTable(path, itemColumns, rows)
}

// ReadItems reads the item master cache
func ReadItems(path string) ([]contracts.ItemMaster, error) {
	records, err := ReadTable(path, ColItemArticle, ColItemBranch)
	if err != nil {
		return nil, err
	}

	out := make([]contracts.ItemMaster, 0, len(records))
	for _, rec := range records {
		d := decoder{rec: rec}
		m := decodeItem(&d)
		if d.err != nil {
			return nil, fmt.Errorf("%s: %w", path, d.err)
		}
		out = append(out, m)
	}
	return out, nil
}

func itemFields(m contracts.ItemMaster) []string {
	return []string{
		formatInt(m.SupplierCode),
		formatInt(m.Article),
		formatInt(m.Branch),
		formatFloat(m.SalePrice),
		formatFloat(m.StatisticalCost),
		formatFloat(m.SalesFactor),
		formatFloat(m.StockUnits),
		formatOptDate(m.LastSale),
		formatFloat(m.Sales15Days),
		formatFloat(m.Sales30Days),
		formatFloat(m.PendingTransfers),
		formatInt(m.Family),
		formatInt(m.Rubro),
		formatFloat(m.DaysWithStock),
		m.OnOffer,
		formatFloat(m.ToReplenish),
		formatFloat(m.NormalDailySales),
		formatInt(int64(m.StockDays)),
		formatInt(int64(m.OverStockDays)),
		formatFloat(m.SupplierLeadDays),
	}
}

func decodeItem(d *decoder) contracts.ItemMaster {
	return contracts.ItemMaster{
		SupplierCode:     d.int(ColSupplier),
		Article:          d.int(ColItemArticle),
		Branch:           d.int(ColItemBranch),
		SalePrice:        d.float(ColSalePrice),
		StatisticalCost:  d.float(ColStatisticalCost),
		SalesFactor:      d.float(ColSalesFactor),
		StockUnits:       d.float(ColStockUnits),
		LastSale:         d.optDate(ColLastSale),
		Sales15Days:      d.float(ColSales15Days),
		Sales30Days:      d.float(ColSales30Days),
		PendingTransfers: d.float(ColPendingTransfers),
		Family:           d.int(ColItemFamily),
		Rubro:            d.int(ColItemRubro),
		DaysWithStock:    d.float(ColDaysWithStock),
		OnOffer:          d.str(ColOnOffer),
		ToReplenish:      d.float(ColToReplenish),
		NormalDailySales: d.float(ColNormalDailySales),
		StockDays:        int(d.int(ColStockDays)),
		OverStockDays:    int(d.int(ColOverStockDays)),
		SupplierLeadDays: d.float(ColSupplierLeadDays),
	}
}
