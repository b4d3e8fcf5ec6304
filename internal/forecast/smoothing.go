package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Component selects how a trend or seasonal term combines with the level
type Component string

const (
	ComponentAdditive       Component = "add"
	ComponentMultiplicative Component = "mul"
	ComponentNone           Component = "none"
)

// 최적화 파라미터 범위
const (
	minSmoothing = 1e-4
	maxSmoothing = 0.9999
)

// ============================================================================
// Holt (level + additive trend)
// ============================================================================

// HoltFit is a fitted additive-trend exponential smoothing model
type HoltFit struct {
	Alpha float64
	Beta  float64
	Level float64 // final level
	Trend float64 // final slope
	SSE   float64
}

// Forecast returns the next steps values
func (h HoltFit) Forecast(steps int) []float64 {
	out := make([]float64, steps)
	for i := range out {
		out[i] = h.Level + float64(i+1)*h.Trend
	}
	return out
}

// FitHolt fits α and β by minimizing one-step squared error.
// The state after the first observation is level=y[0], trend=y[1]-y[0].
func FitHolt(y []float64) (HoltFit, error) {
	if len(y) < 2 {
		return HoltFit{}, fmt.Errorf("holt needs 2 points, got %d: %w", len(y), ErrInsufficientHistory)
	}

	objective := func(p []float64) float64 {
		return holtFilter(y, p[0], p[1]).SSE
	}
	best, _ := minimizeBox(objective, []float64{0.5, 0.1}, minSmoothing, maxSmoothing, 400)

	fit := holtFilter(y, best[0], best[1])
	if !fit.finite() {
		return HoltFit{}, fmt.Errorf("holt: non-finite state: %w", ErrFitFailed)
	}
	return fit, nil
}

// HoltFixed runs Holt with fixed smoothing constants
func HoltFixed(y []float64, alpha, beta float64) (HoltFit, error) {
	if len(y) < 2 {
		return HoltFit{}, fmt.Errorf("holt needs 2 points, got %d: %w", len(y), ErrInsufficientHistory)
	}

	fit := holtFilter(y, alpha, beta)
	if !fit.finite() {
		return HoltFit{}, fmt.Errorf("holt: non-finite state: %w", ErrFitFailed)
	}
	return fit, nil
}

func holtFilter(y []float64, alpha, beta float64) HoltFit {
	level, trend := y[0], y[1]-y[0]
	sse := 0.0
	for _, v := range y[1:] {
		predicted := level + trend
		err := v - predicted
		sse += err * err

		prevLevel := level
		level = alpha*v + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return HoltFit{Alpha: alpha, Beta: beta, Level: level, Trend: trend, SSE: sse}
}

func (h HoltFit) finite() bool {
	return isFinite(h.Level) && isFinite(h.Trend)
}

// ============================================================================
// Holt-Winters (level + trend + seasonality)
// ============================================================================

// HoltWintersConfig selects the model structure
type HoltWintersConfig struct {
	Period   int
	Trend    Component
	Seasonal Component
}

func (c HoltWintersConfig) hasTrend() bool    { return c.Trend != ComponentNone && c.Trend != "" }
func (c HoltWintersConfig) hasSeasonal() bool { return c.Seasonal != ComponentNone && c.Seasonal != "" }

// HoltWintersFit is a fitted triple exponential smoothing model
type HoltWintersFit struct {
	Config  HoltWintersConfig
	Alpha   float64
	Beta    float64
	Gamma   float64
	Level   float64
	Trend   float64
	Seasons []float64 // last Period seasonal factors, oldest first
	SSE     float64
}

// Forecast returns the next steps values
func (f HoltWintersFit) Forecast(steps int) []float64 {
	out := make([]float64, steps)
	for i := range out {
		h := float64(i + 1)
		base := f.Level
		switch f.Config.Trend {
		case ComponentAdditive:
			base += h * f.Trend
		case ComponentMultiplicative:
			base *= math.Pow(f.Trend, h)
		}

		if f.Config.hasSeasonal() {
			s := f.Seasons[i%len(f.Seasons)]
			if f.Config.Seasonal == ComponentMultiplicative {
				base *= s
			} else {
				base += s
			}
		}
		out[i] = base
	}
	return out
}

// FitHoltWinters fits the smoothing constants that minimize one-step squared error
func FitHoltWinters(y []float64, cfg HoltWintersConfig) (HoltWintersFit, error) {
	init, err := holtWintersInit(y, cfg)
	if err != nil {
		return HoltWintersFit{}, err
	}

	// x = [α, β?, γ?]
	x0 := []float64{0.5}
	if cfg.hasTrend() {
		x0 = append(x0, 0.1)
	}
	if cfg.hasSeasonal() {
		x0 = append(x0, 0.1)
	}

	unpack := func(p []float64) (alpha, beta, gamma float64) {
		alpha = p[0]
		i := 1
		if cfg.hasTrend() {
			beta = p[i]
			i++
		}
		if cfg.hasSeasonal() {
			gamma = p[i]
		}
		return alpha, beta, gamma
	}

	objective := func(p []float64) float64 {
		a, b, g := unpack(p)
		fit := holtWintersFilter(y, cfg, init, a, b, g)
		if !isFinite(fit.SSE) {
			return math.Inf(1)
		}
		return fit.SSE
	}
	best, _ := minimizeBox(objective, x0, minSmoothing, maxSmoothing, 600)

	a, b, g := unpack(best)
	fit := holtWintersFilter(y, cfg, init, a, b, g)
	if !fit.finite() {
		return HoltWintersFit{}, fmt.Errorf("holt-winters: non-finite state: %w", ErrFitFailed)
	}
	return fit, nil
}

type hwState struct {
	level   float64
	trend   float64
	seasons []float64
}

func holtWintersInit(y []float64, cfg HoltWintersConfig) (hwState, error) {
	n, m := len(y), cfg.Period

	if cfg.Trend == ComponentMultiplicative || cfg.Seasonal == ComponentMultiplicative {
		for _, v := range y {
			if v <= 0 {
				return hwState{}, fmt.Errorf("multiplicative component needs strictly positive data: %w", ErrFitFailed)
			}
		}
	}

	if !cfg.hasSeasonal() {
		if n < 2 {
			return hwState{}, fmt.Errorf("need 2 points, got %d: %w", n, ErrInsufficientHistory)
		}
		st := hwState{level: y[0]}
		switch cfg.Trend {
		case ComponentAdditive:
			st.trend = y[1] - y[0]
		case ComponentMultiplicative:
			st.trend = y[1] / y[0]
		}
		return st, nil
	}

	if m < 2 {
		return hwState{}, fmt.Errorf("seasonal period must be > 1, got %d: %w", m, ErrFitFailed)
	}
	if n < 2*m {
		return hwState{}, fmt.Errorf("seasonal model needs %d points, got %d: %w", 2*m, n, ErrFitFailed)
	}

	first, second := mean(y[:m]), mean(y[m:2*m])
	st := hwState{level: first, seasons: make([]float64, m)}
	switch cfg.Trend {
	case ComponentAdditive:
		st.trend = (second - first) / float64(m)
	case ComponentMultiplicative:
		st.trend = math.Pow(second/first, 1/float64(m))
	}
	for i := 0; i < m; i++ {
		if cfg.Seasonal == ComponentMultiplicative {
			st.seasons[i] = y[i] / first
		} else {
			st.seasons[i] = y[i] - first
		}
	}
	return st, nil
}

func holtWintersFilter(y []float64, cfg HoltWintersConfig, init hwState, alpha, beta, gamma float64) HoltWintersFit {
	m := cfg.Period
	level, trend := init.level, init.trend
	var seasons []float64
	if cfg.hasSeasonal() {
		seasons = make([]float64, len(init.seasons), len(init.seasons)+len(y))
		copy(seasons, init.seasons)
	}

	combineTrend := func(l, b float64) float64 {
		switch cfg.Trend {
		case ComponentAdditive:
			return l + b
		case ComponentMultiplicative:
			return l * b
		}
		return l
	}

	sse := 0.0
	for t, v := range y {
		base := combineTrend(level, trend)

		season := 0.0
		predicted := base
		deseasoned := v
		if cfg.hasSeasonal() {
			season = seasons[t]
			if cfg.Seasonal == ComponentMultiplicative {
				predicted = base * season
				deseasoned = v / season
			} else {
				predicted = base + season
				deseasoned = v - season
			}
		}
		err := v - predicted
		sse += err * err

		prevLevel := level
		level = alpha*deseasoned + (1-alpha)*base
		switch cfg.Trend {
		case ComponentAdditive:
			trend = beta*(level-prevLevel) + (1-beta)*trend
		case ComponentMultiplicative:
			trend = beta*(level/prevLevel) + (1-beta)*trend
		}

		if cfg.hasSeasonal() {
			var next float64
			if cfg.Seasonal == ComponentMultiplicative {
				next = gamma*(v/base) + (1-gamma)*season
			} else {
				next = gamma*(v-base) + (1-gamma)*season
			}
			seasons = append(seasons, next)
		}
	}

	fit := HoltWintersFit{
		Config: cfg, Alpha: alpha, Beta: beta, Gamma: gamma,
		Level: level, Trend: trend, SSE: sse,
	}
	if cfg.hasSeasonal() {
		fit.Seasons = seasons[len(seasons)-m:]
	}
	return fit
}

func (f HoltWintersFit) finite() bool {
	if !isFinite(f.Level) || !isFinite(f.Trend) {
		return false
	}
	for _, s := range f.Seasons {
		if !isFinite(s) {
			return false
		}
	}
	return true
}

// ============================================================================
// EWMA
// ============================================================================

// EWMA returns the recursively smoothed series s[0]=y[0], s[t]=α·y[t]+(1-α)·s[t-1]
func EWMA(y []float64, alpha float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = alpha*v + (1-alpha)*out[i-1]
	}
	return out
}

// ============================================================================
// Nelder-Mead (gonum, box constrained by clamping)
// ============================================================================

// minimizeBox minimizes f over [lo, hi]^n starting from x0.
// The simplex may leave the box; f only ever sees clamped points.
func minimizeBox(f func([]float64) float64, x0 []float64, lo, hi float64, maxIter int) ([]float64, float64) {
	clamp := func(x []float64) []float64 {
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = math.Min(hi, math.Max(lo, v))
		}
		return out
	}

	start := clamp(x0)
	problem := optimize.Problem{
		Func: func(x []float64) float64 { return f(clamp(x)) },
	}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{SimplexSize: 0.05})
	if res == nil {
		return start, f(start)
	}
	best := clamp(res.X)
	fb := f(best)
	if err != nil {
		// 최적화 오류 시 시작점이 더 나으면 시작점 사용
		if fs := f(start); fs <= fb {
			return start, fs
		}
	}
	return best, fb
}

// ============================================================================
// helpers
// ============================================================================

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}

func sum(v []float64) float64 {
	return floats.Sum(v)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
