package forecast

import (
	"sort"
	"time"

	"github.com/wonny/supplycast/internal/contracts"
)

// Series is a contiguous, evenly spaced sequence of unit totals
type Series struct {
	Key    contracts.SeriesKey
	Start  time.Time // first bucket (day, or week-ending Sunday)
	Values []float64
}

// Len returns the number of buckets
func (s Series) Len() int {
	return len(s.Values)
}

// Tail returns the last n values (all of them when fewer)
func (s Series) Tail(n int) []float64 {
	if n >= len(s.Values) {
		return s.Values
	}
	return s.Values[len(s.Values)-n:]
}

// GroupByKey splits sales into per-series slices; keys are sorted by (article, branch)
func GroupByKey(sales []contracts.SalesRecord) ([]contracts.SeriesKey, map[contracts.SeriesKey][]contracts.SalesRecord) {
	groups := make(map[contracts.SeriesKey][]contracts.SalesRecord)
	for _, r := range sales {
		groups[r.Key()] = append(groups[r.Key()], r)
	}

	keys := make([]contracts.SeriesKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sortKeys(keys)

	return keys, groups
}

func sortKeys(keys []contracts.SeriesKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Article != keys[j].Article {
			return keys[i].Article < keys[j].Article
		}
		return keys[i].Branch < keys[j].Branch
	})
}

// DailyResample sums units per calendar day from the series' first to last
// observed date. Missing days are zero sales.
func DailyResample(key contracts.SeriesKey, records []contracts.SalesRecord) Series {
	if len(records) == 0 {
		return Series{Key: key}
	}

	first, last := dateRange(records)
	n := daysBetween(first, last) + 1
	values := make([]float64, n)
	for _, r := range records {
		values[daysBetween(first, truncateDate(r.Date))] += r.Units
	}

	return Series{Key: key, Start: first, Values: values}
}

// WeeklyResample sums units into weeks ending on Sunday, from the week of the
// first observation to the week of the last. Missing weeks are zero.
func WeeklyResample(key contracts.SeriesKey, records []contracts.SalesRecord) Series {
	if len(records) == 0 {
		return Series{Key: key}
	}

	first, last := dateRange(records)
	firstWeek, lastWeek := weekEnding(first), weekEnding(last)
	n := daysBetween(firstWeek, lastWeek)/7 + 1
	values := make([]float64, n)
	for _, r := range records {
		values[daysBetween(firstWeek, weekEnding(truncateDate(r.Date)))/7] += r.Units
	}

	return Series{Key: key, Start: firstWeek, Values: values}
}

// weekEnding returns the Sunday closing d's week (d itself when Sunday)
func weekEnding(d time.Time) time.Time {
	offset := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, offset)
}

func dateRange(records []contracts.SalesRecord) (time.Time, time.Time) {
	first, last := truncateDate(records[0].Date), truncateDate(records[0].Date)
	for _, r := range records[1:] {
		d := truncateDate(r.Date)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
