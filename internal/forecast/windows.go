package forecast

import (
	"time"

	"github.com/wonny/supplycast/internal/contracts"
)

// Window is an inclusive calendar-date range
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls inside the window (date precision)
func (w Window) Contains(d time.Time) bool {
	d = truncateDate(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of calendar days covered
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// ComparisonWindows are the three non-overlapping spans ending at the reference date
type ComparisonWindows struct {
	Last     Window // [ref-(n-1), ref]
	Previous Window // [ref-(2n-1), ref-n]
	SameYear Window // Last shifted back one calendar year
}

// NewComparisonWindows builds the windows of days days ending at ref
func NewComparisonWindows(ref time.Time, days int) ComparisonWindows {
	ref = truncateDate(ref)
	lastYear := yearBefore(ref)

	return ComparisonWindows{
		Last: Window{
			Start: ref.AddDate(0, 0, -(days - 1)),
			End:   ref,
		},
		Previous: Window{
			Start: ref.AddDate(0, 0, -(2*days - 1)),
			End:   ref.AddDate(0, 0, -days),
		},
		SameYear: Window{
			Start: lastYear.AddDate(0, 0, -(days - 1)),
			End:   lastYear,
		},
	}
}

// WindowSums holds the units sold in each comparison window
type WindowSums struct {
	Last     float64
	Previous float64
	SameYear float64
}

// SumWindows sums units per series for each window.
// A series appears in the result when it has at least one observation in any window.
func SumWindows(sales []contracts.SalesRecord, w ComparisonWindows) map[contracts.SeriesKey]WindowSums {
	out := make(map[contracts.SeriesKey]WindowSums)
	for _, r := range sales {
		inLast, inPrev, inYear := w.Last.Contains(r.Date), w.Previous.Contains(r.Date), w.SameYear.Contains(r.Date)
		if !inLast && !inPrev && !inYear {
			continue
		}

		s := out[r.Key()]
		if inLast {
			s.Last += r.Units
		}
		if inPrev {
			s.Previous += r.Units
		}
		if inYear {
			s.SameYear += r.Units
		}
		out[r.Key()] = s
	}
	return out
}

// MaxDate returns the latest observation date (zero time for empty input)
func MaxDate(sales []contracts.SalesRecord) time.Time {
	var max time.Time
	for _, r := range sales {
		if r.Date.After(max) {
			max = r.Date
		}
	}
	return truncateDate(max)
}

func truncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// yearBefore shifts d back one calendar year, clipping Feb 29 to Feb 28
func yearBefore(d time.Time) time.Time {
	y, m, day := d.Date()
	last := time.Date(y-1, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(y-1, m, day, 0, 0, 0, 0, time.UTC)
}
