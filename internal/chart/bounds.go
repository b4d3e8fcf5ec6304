package chart

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Confidence interval settings
const (
	ConfidenceLevel = 0.95
	zScore          = 1.96
)

// Bounds is the forecast confidence interval over the replenishment window
type Bounds struct {
	Level       float64
	ErrorMargin float64
	Lower       float64
	Upper       float64
}

// ConfidenceBounds computes z·σ_daily·√window around forecast.
// σ is the sample standard deviation of daily; fewer than two points give σ = 0.
// The lower bound never goes below zero.
func ConfidenceBounds(daily []float64, forecast float64, window int) Bounds {
	margin := zScore * stddev(daily) * math.Sqrt(float64(max(window, 0)))
	return Bounds{
		Level:       ConfidenceLevel,
		ErrorMargin: round3(margin),
		Lower:       round3(math.Max(0, forecast-margin)),
		Upper:       round3(forecast + margin),
	}
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
