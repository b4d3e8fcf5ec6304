package consolidator

import "math"

// smapeEpsilon keeps sMAPE finite when forecast and actual are both zero
const smapeEpsilon = 1e-6

// Accumulator collects (forecast, actual) pairs and scores them
type Accumulator struct {
	n        int
	absSum   float64
	sqSum    float64
	smapeSum float64
}

// Add records one pair
func (a *Accumulator) Add(forecast, actual float64) {
	diff := forecast - actual
	a.n++
	a.absSum += math.Abs(diff)
	a.sqSum += diff * diff
	a.smapeSum += 2 * math.Abs(diff) / (math.Abs(forecast) + math.Abs(actual) + smapeEpsilon)
}

// N returns the number of pairs
func (a *Accumulator) N() int {
	return a.n
}

// MAE is the mean absolute error
func (a *Accumulator) MAE() float64 {
	if a.n == 0 {
		return math.NaN()
	}
	return a.absSum / float64(a.n)
}

// RMSE is the root mean squared error
func (a *Accumulator) RMSE() float64 {
	if a.n == 0 {
		return math.NaN()
	}
	return math.Sqrt(a.sqSum / float64(a.n))
}

// SMAPE is the symmetric mean absolute percentage error, as a fraction in [0, 2]
func (a *Accumulator) SMAPE() float64 {
	if a.n == 0 {
		return math.NaN()
	}
	return a.smapeSum / float64(a.n)
}
