package forecast

import "math"

// roundHalfAway rounds x to places decimals, halves away from zero
func roundHalfAway(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// WholeUnits converts a raw demand estimate into units to order:
// round to cents, ceil away the fraction, clamp at zero.
// Non-finite input (a failed fit) yields zero.
func WholeUnits(x float64) float64 {
	if !isFinite(x) {
		return 0
	}
	return math.Max(0, math.Ceil(roundHalfAway(x, 2)))
}

// DailyAverage returns the per-day run-rate of a window forecast
func DailyAverage(forecast float64, window int) float64 {
	if window <= 0 {
		return 0
	}
	return roundHalfAway(forecast/float64(window), 3)
}
