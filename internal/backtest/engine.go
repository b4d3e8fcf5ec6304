package backtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/consolidator"
	"github.com/wonny/supplycast/internal/contracts"
)

// Config holds rolling backtest configuration (단위: 판매 관측치)
type Config struct {
	WindowSize int // 학습 구간 길이
	Horizon    int // 평가 구간 길이
	Step       int // 구간 이동 폭
}

// DefaultConfig returns window 52, horizon 4, step 1
func DefaultConfig() Config {
	return Config{WindowSize: 52, Horizon: 4, Step: 1}
}

// Validate rejects non-positive sizes
func (c Config) Validate() error {
	if c.WindowSize <= 0 || c.Horizon <= 0 || c.Step <= 0 {
		return fmt.Errorf("invalid backtest config: window=%d horizon=%d step=%d", c.WindowSize, c.Horizon, c.Step)
	}
	return nil
}

// WindowResult holds the error scores of one simulated window
type WindowResult struct {
	Article     int64
	Branch      int64
	Algorithm   contracts.Algorithm
	WindowStart time.Time
	WindowEnd   time.Time
	MAE         float64
	RMSE        float64
	SMAPE       float64
}

// Engine runs rolling-window backtests
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(cfg Config, log zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg: cfg,
		log: log.With().Str("component", "backtest.engine").Logger(),
	}, nil
}

type combo struct {
	article   int64
	branch    int64
	algorithm contracts.Algorithm
}

// Run backtests every (article, branch, algorithm) present in forecasts
func (e *Engine) Run(ctx context.Context, sales []contracts.SalesRecord, forecasts []contracts.ForecastRow) ([]WindowResult, error) {
	series := make(map[contracts.SeriesKey][]contracts.SalesRecord)
	for _, s := range sales {
		series[s.Key()] = append(series[s.Key()], s)
	}
	for k := range series {
		obs := series[k]
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	}

	// combo별 주차 → forecast 값 목록 (입력 순서 유지)
	var order []combo
	byWeek := make(map[combo]map[int][]float64)
	for _, f := range forecasts {
		c := combo{article: f.Article, branch: f.Branch, algorithm: f.Algorithm}
		weeks, ok := byWeek[c]
		if !ok {
			weeks = make(map[int][]float64)
			byWeek[c] = weeks
			order = append(order, c)
		}
		weeks[f.Window] = append(weeks[f.Window], f.Forecast)
	}

	var results []WindowResult
	for _, c := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obs := series[contracts.SeriesKey{Article: c.article, Branch: c.branch}]
		results = append(results, e.rolling(c, obs, byWeek[c])...)
	}

	e.log.Info().
		Int("combinations", len(order)).
		Int("windows", len(results)).
		Int("window_size", e.cfg.WindowSize).
		Int("horizon", e.cfg.Horizon).
		Msg("backtest complete")

	return results, nil
}

// rolling slides the window over obs and scores the horizon after each window
func (e *Engine) rolling(c combo, obs []contracts.SalesRecord, weeks map[int][]float64) []WindowResult {
	var out []WindowResult
	for start := 0; start+e.cfg.WindowSize+e.cfg.Horizon <= len(obs); start += e.cfg.Step {
		trainEnd := start + e.cfg.WindowSize
		test := obs[trainEnd : trainEnd+e.cfg.Horizon]

		var acc consolidator.Accumulator
		for _, o := range test {
			_, week := o.Date.ISOWeek()
			for _, f := range weeks[week] {
				acc.Add(f, o.Units)
			}
		}
		if acc.N() == 0 {
			continue
		}

		out = append(out, WindowResult{
			Article:     c.article,
			Branch:      c.branch,
			Algorithm:   c.algorithm,
			WindowStart: obs[start].Date,
			WindowEnd:   obs[trainEnd-1].Date,
			MAE:         acc.MAE(),
			RMSE:        acc.RMSE(),
			SMAPE:       acc.SMAPE(),
		})
	}
	return out
}

var reportColumns = []string{
	"Codigo_Articulo", "Sucursal", "algoritmo", "Inicio_Ventana", "Fin_Ventana", "MAE", "RMSE", "sMAPE",
}

// WriteReport writes results as the supplier backtest artifact
func WriteReport(path string, results []WindowResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			strconv.FormatInt(r.Article, 10),
			strconv.FormatInt(r.Branch, 10),
			string(r.Algorithm),
			r.WindowStart.Format("2006-01-02"),
			r.WindowEnd.Format("2006-01-02"),
			strconv.FormatFloat(r.MAE, 'f', -1, 64),
			strconv.FormatFloat(r.RMSE, 'f', -1, 64),
			strconv.FormatFloat(r.SMAPE, 'f', -1, 64),
		})
	}
	return artifacts.WriteTable(path, reportColumns, rows)
}
