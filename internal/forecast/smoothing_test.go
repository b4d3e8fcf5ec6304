package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitHolt_LinearSeries(t *testing.T) {
	y := make([]float64, 20)
	for i := range y {
		y[i] = float64(2*i + 1)
	}

	fit, err := FitHolt(y)
	require.NoError(t, err)

	fc := fit.Forecast(3)
	assert.InDelta(t, 41, fc[0], 1e-6)
	assert.InDelta(t, 43, fc[1], 1e-6)
	assert.InDelta(t, 45, fc[2], 1e-6)
	assert.GreaterOrEqual(t, fit.Alpha, minSmoothing)
	assert.LessOrEqual(t, fit.Alpha, maxSmoothing)
}

func TestFitHolt_TooShort(t *testing.T) {
	_, err := FitHolt([]float64{1})
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestHoltFixed_Constant(t *testing.T) {
	fit, err := HoltFixed([]float64{49, 49, 49, 49, 49}, 0.8, 0.2)
	require.NoError(t, err)
	fc := fit.Forecast(2)
	assert.InDelta(t, 49, fc[0], 1e-9)
	assert.InDelta(t, 49, fc[1], 1e-9)
}

func TestFitHoltWinters(t *testing.T) {
	constant := make([]float64, 28)
	for i := range constant {
		constant[i] = 5
	}

	tests := []struct {
		name    string
		y       []float64
		cfg     HoltWintersConfig
		wantErr error
		want    float64 // sum of 7 steps
	}{
		{
			name: "additive constant",
			y:    constant,
			cfg:  HoltWintersConfig{Period: 7, Trend: ComponentAdditive, Seasonal: ComponentAdditive},
			want: 35,
		},
		{
			name: "multiplicative constant",
			y:    constant,
			cfg:  HoltWintersConfig{Period: 7, Trend: ComponentNone, Seasonal: ComponentMultiplicative},
			want: 35,
		},
		{
			name:    "multiplicative with zero sales",
			y:       append([]float64{0}, constant[1:]...),
			cfg:     HoltWintersConfig{Period: 7, Trend: ComponentAdditive, Seasonal: ComponentMultiplicative},
			wantErr: ErrFitFailed,
		},
		{
			name:    "fewer than two cycles",
			y:       constant[:15],
			cfg:     HoltWintersConfig{Period: 10, Trend: ComponentAdditive, Seasonal: ComponentAdditive},
			wantErr: ErrFitFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fit, err := FitHoltWinters(tt.y, tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, sum(fit.Forecast(7)), 1e-6)
		})
	}
}

func TestFitHoltWinters_RepeatsSeasonalPattern(t *testing.T) {
	pattern := []float64{10, 2, 2, 2, 2, 2, 20}
	var y []float64
	for c := 0; c < 4; c++ {
		y = append(y, pattern...)
	}

	fit, err := FitHoltWinters(y, HoltWintersConfig{Period: 7, Trend: ComponentAdditive, Seasonal: ComponentAdditive})
	require.NoError(t, err)

	fc := fit.Forecast(7)
	for i, want := range pattern {
		assert.InDelta(t, want, fc[i], 1e-6, "step %d", i)
	}
}

func TestEWMA_NotAdjusted(t *testing.T) {
	got := EWMA([]float64{0, 0, 10}, 0.5)
	assert.Equal(t, []float64{0, 0, 5}, got)

	got = EWMA([]float64{4}, 0.3)
	assert.Equal(t, []float64{4}, got)
}

func TestMinimizeBox_Quadratic(t *testing.T) {
	f := func(p []float64) float64 {
		return math.Pow(p[0]-0.3, 2) + math.Pow(p[1]-0.7, 2)
	}

	x, fx := minimizeBox(f, []float64{0.5, 0.1}, 0, 1, 500)

	assert.InDelta(t, 0.3, x[0], 1e-3)
	assert.InDelta(t, 0.7, x[1], 1e-3)
	assert.InDelta(t, 0, fx, 1e-6)
}

func TestMinimizeBox_ClampsToBox(t *testing.T) {
	f := func(p []float64) float64 { return -p[0] }

	x, _ := minimizeBox(f, []float64{0.5}, minSmoothing, maxSmoothing, 500)

	assert.InDelta(t, maxSmoothing, x[0], 1e-6)
}
