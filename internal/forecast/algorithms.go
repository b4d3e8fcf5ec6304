package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/supplycast/internal/contracts"
)

const (
	// MinDailyPoints 일별 모델(ALGO_02/03) 최소 길이: 주간 2주기
	MinDailyPoints = 14

	// MinWeeklyPoints ALGO_06 최소 주간 포인트
	MinWeeklyPoints = 4

	// MinForecastWeeks ALGO_06 최소 예측 주 수
	MinForecastWeeks = 4

	// TrailingDays ALGO_05 평균 구간
	TrailingDays = 30

	weeklyHoltAlpha = 0.8
	weeklyHoltBeta  = 0.2
)

// Input is one algorithm run over one supplier's sales
type Input struct {
	SupplierCode int64
	Label        string
	Sales        []contracts.SalesRecord
	AsOf         time.Time // zero = latest sale date
	Params       Params
}

// Forecaster runs the six demand algorithms
// ⭐ SSOT: 수요 예측 계산은 여기서만
type Forecaster struct {
	log zerolog.Logger
}

// NewForecaster 새 예측기 생성
func NewForecaster(log zerolog.Logger) *Forecaster {
	return &Forecaster{
		log: log.With().Str("component", "forecast.algorithms").Logger(),
	}
}

// estimate is one series' raw result before post-processing
type estimate struct {
	key     contracts.SeriesKey
	value   float64
	failed  bool
	average *float64 // 알고리즘이 직접 정한 Average (ALGO_04)
}

// ValidateWindow rejects a window the algorithm cannot forecast over
func ValidateWindow(algo contracts.Algorithm, window int) error {
	if window < 1 {
		return fmt.Errorf("window %d: %w", window, ErrInvalidWindow)
	}
	if algo == contracts.AlgoWeeklyHolt && window/7 < MinForecastWeeks {
		return fmt.Errorf("window %d days is %d weeks, need %d: %w",
			window, window/7, MinForecastWeeks, ErrInvalidWindow)
	}
	return nil
}

// Run computes the forecast table for algo.
// Rows are ordered by (article, branch). Series skipped for short history are absent;
// series whose fit failed carry Forecast=0 and FitFailed=true.
func (f *Forecaster) Run(ctx context.Context, algo contracts.Algorithm, in Input) ([]contracts.ForecastRow, error) {
	if !algo.IsValid() {
		return nil, fmt.Errorf("%q: %w", algo, ErrUnknownAlgorithm)
	}
	if err := ValidateWindow(algo, in.Params.Window); err != nil {
		return nil, err
	}
	if err := in.Params.Validate(algo); err != nil {
		return nil, err
	}
	if len(in.Sales) == 0 {
		return nil, nil
	}

	asOf := truncateDate(in.AsOf)
	if asOf.IsZero() {
		asOf = MaxDate(in.Sales)
	}
	windows := NewComparisonWindows(asOf, in.Params.Window)
	sums := SumWindows(in.Sales, windows)

	log := f.log.With().
		Int64("supplier", in.SupplierCode).
		Str("label", in.Label).
		Str("algorithm", string(algo)).
		Int("window", in.Params.Window).
		Logger()

	var (
		estimates []estimate
		err       error
	)
	switch algo {
	case contracts.AlgoWeightedAverage:
		estimates = weightedAverage(sums, in.Params)
	case contracts.AlgoHolt:
		estimates, err = f.perSeries(ctx, in.Sales, func(key contracts.SeriesKey, records []contracts.SalesRecord) (estimate, bool) {
			return holtDaily(key, records, in.Params.Window)
		})
	case contracts.AlgoHoltWinters:
		estimates, err = f.perSeries(ctx, in.Sales, func(key contracts.SeriesKey, records []contracts.SalesRecord) (estimate, bool) {
			return holtWintersDaily(key, records, in.Params)
		})
	case contracts.AlgoEWMA:
		estimates, err = f.perSeries(ctx, in.Sales, func(key contracts.SeriesKey, records []contracts.SalesRecord) (estimate, bool) {
			return ewmaDaily(key, records, in.Params)
		})
	case contracts.AlgoTrailingAverage:
		estimates, err = f.perSeries(ctx, in.Sales, func(key contracts.SeriesKey, records []contracts.SalesRecord) (estimate, bool) {
			return trailingAverage(key, records, in.Params.Window)
		})
	case contracts.AlgoWeeklyHolt:
		estimates, err = f.perSeries(ctx, in.Sales, func(key contracts.SeriesKey, records []contracts.SalesRecord) (estimate, bool) {
			est, ok := weeklyHolt(key, records, in.Params.Window)
			if est.failed {
				log.Warn().
					Int64("article", key.Article).
					Int64("branch", key.Branch).
					Msg("weekly holt fit failed, forecast set to 0")
			}
			return est, ok
		})
	}
	if err != nil {
		return nil, err
	}

	rows := make([]contracts.ForecastRow, 0, len(estimates))
	failed := 0
	for _, est := range estimates {
		row := contracts.ForecastRow{
			SupplierCode: in.SupplierCode,
			Article:      est.key.Article,
			Branch:       est.key.Branch,
			Algorithm:    algo,
			Window:       in.Params.Window,
			Forecast:     WholeUnits(est.value),
			FitFailed:    est.failed,
		}
		if est.failed {
			failed++
		}

		if est.average != nil {
			row.Average = roundHalfAway(*est.average, 3)
		} else {
			row.Average = DailyAverage(row.Forecast, in.Params.Window)
		}

		s := sums[est.key]
		row.SalesLast, row.SalesPrevious, row.SalesSameYear = s.Last, s.Previous, s.SameYear
		rows = append(rows, row)
	}

	log.Info().
		Time("as_of", asOf).
		Int("rows", len(rows)).
		Int("fit_failed", failed).
		Msg("forecast computed")

	return rows, nil
}

// perSeries applies fn to each (article, branch) series in key order.
// fn returns ok=false to omit the series.
func (f *Forecaster) perSeries(
	ctx context.Context,
	sales []contracts.SalesRecord,
	fn func(contracts.SeriesKey, []contracts.SalesRecord) (estimate, bool),
) ([]estimate, error) {
	keys, groups := GroupByKey(sales)
	out := make([]estimate, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if est, ok := fn(key, groups[key]); ok {
			out = append(out, est)
		}
	}
	return out, nil
}

// ALGO_01: 세 구간 가중 평균 (구간 합의 outer join)
func weightedAverage(sums map[contracts.SeriesKey]WindowSums, p Params) []estimate {
	keys := make([]contracts.SeriesKey, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sortKeys(keys)

	total := float64(p.WeightLast + p.WeightPrevious + p.WeightSameYear)
	out := make([]estimate, 0, len(keys))
	for _, k := range keys {
		s := sums[k]
		value := (s.Last*float64(p.WeightLast) +
			s.Previous*float64(p.WeightPrevious) +
			s.SameYear*float64(p.WeightSameYear)) / total
		out = append(out, estimate{key: k, value: value})
	}
	return out
}

// ALGO_02: 일별 Holt (α, β 최적화)
func holtDaily(key contracts.SeriesKey, records []contracts.SalesRecord, window int) (estimate, bool) {
	series := DailyResample(key, records)
	if series.Len() < MinDailyPoints {
		return estimate{}, false
	}

	fit, err := FitHolt(series.Values)
	if err != nil {
		return estimate{key: key, value: math.NaN(), failed: true}, true
	}
	return estimate{key: key, value: sum(fit.Forecast(window))}, true
}

// ALGO_03: 일별 Holt-Winters
func holtWintersDaily(key contracts.SeriesKey, records []contracts.SalesRecord, p Params) (estimate, bool) {
	series := DailyResample(key, records)
	if series.Len() < MinDailyPoints {
		return estimate{}, false
	}

	fit, err := FitHoltWinters(series.Values, HoltWintersConfig{
		Period:   p.Period,
		Trend:    p.Trend,
		Seasonal: p.Seasonal,
	})
	if err != nil {
		return estimate{key: key, value: math.NaN(), failed: true}, true
	}

	total := sum(fit.Forecast(p.Window))
	if !isFinite(total) {
		return estimate{key: key, value: math.NaN(), failed: true}, true
	}
	return estimate{key: key, value: total}, true
}

// ALGO_04: EWMA 마지막 값 × window
func ewmaDaily(key contracts.SeriesKey, records []contracts.SalesRecord, p Params) (estimate, bool) {
	series := DailyResample(key, records)
	if series.Len() == 0 {
		return estimate{}, false
	}

	smoothed := EWMA(series.Values, p.Alpha)
	last := smoothed[len(smoothed)-1]
	return estimate{
		key:     key,
		value:   last * float64(p.Window),
		average: &last,
	}, true
}

// ALGO_05: 최근 30일(달력 기준, 0 포함) 평균 × window
func trailingAverage(key contracts.SeriesKey, records []contracts.SalesRecord, window int) (estimate, bool) {
	series := DailyResample(key, records)
	if series.Len() == 0 {
		return estimate{}, false
	}
	return estimate{key: key, value: mean(series.Tail(TrailingDays)) * float64(window)}, true
}

// ALGO_06: 주간 합계 Holt (α=0.8, β=0.2 고정). fit 실패는 0
func weeklyHolt(key contracts.SeriesKey, records []contracts.SalesRecord, window int) (estimate, bool) {
	series := WeeklyResample(key, records)
	if series.Len() < MinWeeklyPoints {
		return estimate{}, false
	}

	fit, err := HoltFixed(series.Values, weeklyHoltAlpha, weeklyHoltBeta)
	if err != nil {
		return estimate{key: key, value: 0, failed: true}, true
	}
	total := sum(fit.Forecast(window / 7))
	if !isFinite(total) {
		return estimate{key: key, value: 0, failed: true}, true
	}
	return estimate{key: key, value: total}, true
}
