package chart

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/supplycast/internal/contracts"
)

// DailyWindow returns the zero-filled daily units of records over [end-days, end]
func DailyWindow(records []contracts.SalesRecord, end time.Time, days int) (time.Time, []float64) {
	end = dateOf(end)
	start := end.AddDate(0, 0, -days)
	values := make([]float64, days+1)
	for _, r := range records {
		d := dateOf(r.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		values[int(d.Sub(start).Hours()/24)] += r.Units
	}
	return start, values
}

// MovingAverage is the trailing n-point mean; the first n-1 points are NaN
func MovingAverage(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	run := 0.0
	for i, v := range values {
		run += v
		if i >= n {
			run -= values[i-n]
		}
		if i < n-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = run / float64(n)
	}
	return out
}

// WeeklyTotals groups daily values starting at start into ISO weeks
func WeeklyTotals(start time.Time, daily []float64) (weeks []int, totals []float64) {
	lastYear, lastWeek := -1, -1
	for i, v := range daily {
		y, w := start.AddDate(0, 0, i).ISOWeek()
		if y != lastYear || w != lastWeek {
			weeks = append(weeks, w)
			totals = append(totals, 0)
			lastYear, lastWeek = y, w
		}
		totals[len(totals)-1] += v
	}
	return weeks, totals
}

// MonthlyUnits sums units per calendar month over the last days of sales
func MonthlyUnits(sales []contracts.SalesRecord, days int) []float64 {
	var end time.Time
	for _, s := range sales {
		if s.Date.After(end) {
			end = s.Date
		}
	}
	if end.IsZero() {
		return nil
	}
	start := dateOf(end).AddDate(0, 0, -days)

	byMonth := make(map[string]float64)
	for _, s := range sales {
		if dateOf(s.Date).Before(start) {
			continue
		}
		byMonth[s.Date.Format("2006-01")] += s.Units
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]float64, len(months))
	for i, m := range months {
		out[i] = byMonth[m]
	}
	return out
}

func splitTail(values []float64, n int) (tail, head []float64) {
	if n >= len(values) {
		return values, nil
	}
	return values[len(values)-n:], values[:len(values)-n]
}

func sum(values []float64) float64 {
	return floats.Sum(values)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
