package forecast

import (
	"time"

	"github.com/wonny/supplycast/internal/contracts"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daily builds one record per day for [from, from+days)
func daily(article, branch int64, from time.Time, days int, units float64) []contracts.SalesRecord {
	out := make([]contracts.SalesRecord, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, contracts.SalesRecord{
			Date:    from.AddDate(0, 0, i),
			Article: article,
			Branch:  branch,
			Units:   units,
		})
	}
	return out
}

func paramsWithWindow(window int) Params {
	p := DefaultParams()
	p.Window = window
	return p
}
