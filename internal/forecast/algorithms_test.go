package forecast

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/supplycast/internal/contracts"
)

func newTestForecaster() *Forecaster {
	return NewForecaster(zerolog.Nop())
}

func TestRun_ForecastIsNonNegativeWholeUnits(t *testing.T) {
	var sales []contracts.SalesRecord
	start := date(2024, 1, 1)
	for i := 0; i < 90; i++ {
		sales = append(sales,
			contracts.SalesRecord{Date: start.AddDate(0, 0, i), Article: 1, Branch: 1, Units: float64((i * 7) % 5)},
			// 감소 추세: Holt 예측이 음수로 떨어짐
			contracts.SalesRecord{Date: start.AddDate(0, 0, i), Article: 2, Branch: 1, Units: math.Max(0, float64(90-2*i))},
		)
	}

	f := newTestForecaster()
	for _, algo := range contracts.AllAlgorithms() {
		t.Run(string(algo), func(t *testing.T) {
			rows, err := f.Run(context.Background(), algo, Input{
				SupplierCode: 20,
				Label:        "20_ACME",
				Sales:        sales,
				Params:       paramsWithWindow(28),
			})
			require.NoError(t, err)
			require.NotEmpty(t, rows)

			for _, r := range rows {
				assert.GreaterOrEqual(t, r.Forecast, 0.0)
				assert.Equal(t, math.Trunc(r.Forecast), r.Forecast, "fractional units %v", r.Forecast)
				assert.Equal(t, algo, r.Algorithm)
				assert.Equal(t, 28, r.Window)
				assert.Equal(t, int64(20), r.SupplierCode)
			}
		})
	}
}

func TestRun_WeightedAverage(t *testing.T) {
	// ref = 2024-03-31, window 30
	sales := daily(100, 1, date(2024, 3, 2), 30, 1)
	sales = append(sales,
		contracts.SalesRecord{Date: date(2024, 2, 15), Article: 100, Branch: 1, Units: 60},
		contracts.SalesRecord{Date: date(2023, 3, 31), Article: 100, Branch: 1, Units: 11},
	)

	rows, err := newTestForecaster().Run(context.Background(), contracts.AlgoWeightedAverage, Input{
		SupplierCode: 7,
		Sales:        sales,
		Params:       paramsWithWindow(30),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	// (30·77 + 60·22 + 11·11) / 110 = 34.1
	assert.Equal(t, 35.0, r.Forecast)
	assert.Equal(t, 1.167, r.Average)
	assert.Equal(t, 30.0, r.SalesLast)
	assert.Equal(t, 60.0, r.SalesPrevious)
	assert.Equal(t, 11.0, r.SalesSameYear)
}

func TestRun_WeightedAverage_OuterJoinOfWindows(t *testing.T) {
	sales := []contracts.SalesRecord{
		{Date: date(2024, 3, 31), Article: 1, Branch: 1, Units: 10},
		// article 2는 작년 구간에만 존재
		{Date: date(2023, 3, 20), Article: 2, Branch: 1, Units: 110},
	}

	p := paramsWithWindow(30)
	p.WeightLast, p.WeightPrevious, p.WeightSameYear = 1, 0, 1

	rows, err := newTestForecaster().Run(context.Background(), contracts.AlgoWeightedAverage, Input{Sales: sales, Params: p})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1), rows[0].Article)
	assert.Equal(t, 5.0, rows[0].Forecast)
	assert.Equal(t, int64(2), rows[1].Article)
	assert.Equal(t, 55.0, rows[1].Forecast)
	assert.Equal(t, 0.0, rows[1].SalesLast)
}

func TestRun_HoltLinearTrend(t *testing.T) {
	var sales []contracts.SalesRecord
	for i := 0; i < 20; i++ {
		sales = append(sales, contracts.SalesRecord{Date: date(2024, 1, 1).AddDate(0, 0, i), Article: 5, Branch: 2, Units: float64(i)})
	}

	rows, err := newTestForecaster().Run(context.Background(), contracts.AlgoHolt, Input{Sales: sales, Params: paramsWithWindow(7)})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// 20 + 21 + ... + 26
	assert.Equal(t, 161.0, rows[0].Forecast)
	assert.Equal(t, 23.0, rows[0].Average)
	assert.False(t, rows[0].FitFailed)
}

// 14일 미만 시리즈는 ALGO_02/03에서 빠지고 나머지는 그대로 나온다
func TestRun_ShortSeriesOmitted(t *testing.T) {
	sales := daily(1, 1, date(2024, 1, 1), 30, 5)
	sales = append(sales, daily(2, 1, date(2024, 1, 21), 10, 3)...)

	for _, algo := range []contracts.Algorithm{contracts.AlgoHolt, contracts.AlgoHoltWinters} {
		t.Run(string(algo), func(t *testing.T) {
			rows, err := newTestForecaster().Run(context.Background(), algo, Input{Sales: sales, Params: paramsWithWindow(30)})
			require.NoError(t, err)
			require.Len(t, rows, 1)

			assert.Equal(t, int64(1), rows[0].Article)
			assert.Equal(t, 150.0, rows[0].Forecast)
			assert.Equal(t, 150.0, rows[0].SalesLast)
		})
	}
}

func TestRun_HoltWintersFitFailureIsZero(t *testing.T) {
	sales := daily(1, 1, date(2024, 1, 1), 15, 5)
	p := paramsWithWindow(30)
	p.Period = 10

	rows, err := newTestForecaster().Run(context.Background(), contracts.AlgoHoltWinters, Input{Sales: sales, Params: p})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].FitFailed)
	assert.Equal(t, 0.0, rows[0].Forecast)
	assert.Equal(t, 0.0, rows[0].Average)
	assert.Equal(t, 75.0, rows[0].SalesLast)
}

func TestRun_EWMAKeepsSmoothedAverage(t *testing.T) {
	sales := daily(1, 1, date(2024, 1, 1), 9, 0)
	sales = append(sales, contracts.SalesRecord{Date: date(2024, 1, 10), Article: 1, Branch: 1, Units: 1})

	p := paramsWithWindow(7)
	p.Alpha = 0.3

	rows, err := newTestForecaster().Run(context.Background(), contracts.AlgoEWMA, Input{Sales: sales, Params: p})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// last = 0.3, 0.3 × 7 = 2.1 → 3
	assert.Equal(t, 3.0, rows[0].Forecast)
	assert.Equal(t, 0.3, rows[0].Average)
}

// 3 articles × 2 branches, 18개월 일별 판매 + 30일 무판매 구간
func TestRun_TrailingAverageUsesCalendarDays(t *testing.T) {
	var sales []contracts.SalesRecord
	for article := int64(1); article <= 3; article++ {
		for branch := int64(1); branch <= 2; branch++ {
			// 2023-01-01 .. 2024-05-21
			sales = append(sales, daily(article, branch, date(2023, 1, 1), 507, 4)...)
			// 2024-05-22 .. 2024-06-20 무판매, 2024-06-21 .. 2024-06-30
			sales = append(sales, daily(article, branch, date(2024, 6, 21), 10, 6)...)
		}
	}

	rows, err := newTestForecaster().Run(context.Background(), contracts.AlgoTrailingAverage, Input{Sales: sales, Params: paramsWithWindow(30)})
	require.NoError(t, err)
	require.Len(t, rows, 6)

	for _, r := range rows {
		// (20 × 0 + 10 × 6) / 30 = 2/day
		assert.Equal(t, 60.0, r.Forecast)
		assert.Equal(t, 2.0, r.Average)
		assert.Equal(t, 60.0, r.SalesLast)
	}
	assert.Equal(t, int64(1), rows[0].Article)
	assert.Equal(t, int64(2), rows[1].Branch)
}

func TestRun_WeeklyHolt(t *testing.T) {
	f := newTestForecaster()
	ctx := context.Background()

	t.Run("window shorter than four weeks", func(t *testing.T) {
		rows, err := f.Run(ctx, contracts.AlgoWeeklyHolt, Input{
			Sales:  daily(1, 1, date(2024, 1, 1), 70, 7),
			Params: paramsWithWindow(21),
		})
		assert.ErrorIs(t, err, ErrInvalidWindow)
		assert.Empty(t, rows)
	})

	t.Run("too few weeks of history", func(t *testing.T) {
		rows, err := f.Run(ctx, contracts.AlgoWeeklyHolt, Input{
			Sales:  daily(1, 1, date(2024, 1, 1), 21, 7),
			Params: paramsWithWindow(28),
		})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("constant weekly demand", func(t *testing.T) {
		// 2024-01-01 (월) .. 2024-03-10 (일): 10주 × 49
		rows, err := f.Run(ctx, contracts.AlgoWeeklyHolt, Input{
			Sales:  daily(1, 1, date(2024, 1, 1), 70, 7),
			Params: paramsWithWindow(28),
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 196.0, rows[0].Forecast)
		assert.Equal(t, 7.0, rows[0].Average)
	})
}

func TestRun_InvalidInput(t *testing.T) {
	f := newTestForecaster()
	ctx := context.Background()
	sales := daily(1, 1, date(2024, 1, 1), 30, 1)

	_, err := f.Run(ctx, contracts.Algorithm("ALGO_99"), Input{Sales: sales, Params: DefaultParams()})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = f.Run(ctx, contracts.AlgoHolt, Input{Sales: sales, Params: paramsWithWindow(0)})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	p := paramsWithWindow(30)
	p.WeightLast, p.WeightPrevious, p.WeightSameYear = 0, 0, 0
	_, err = f.Run(ctx, contracts.AlgoWeightedAverage, Input{Sales: sales, Params: p})
	assert.ErrorIs(t, err, ErrInvalidParams)

	rows, err := f.Run(ctx, contracts.AlgoHolt, Input{Params: DefaultParams()})
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRun_ExplicitAsOf(t *testing.T) {
	sales := daily(1, 1, date(2024, 1, 1), 60, 1)

	rows, err := newTestForecaster().Run(context.Background(), contracts.AlgoWeightedAverage, Input{
		Sales:  sales,
		AsOf:   date(2024, 1, 31),
		Params: paramsWithWindow(10),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10.0, rows[0].SalesLast)
	assert.Equal(t, 10.0, rows[0].SalesPrevious)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestForecaster().Run(ctx, contracts.AlgoTrailingAverage, Input{
		Sales:  daily(1, 1, date(2024, 1, 1), 30, 1),
		Params: DefaultParams(),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
