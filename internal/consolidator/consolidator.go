package consolidator

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/supplycast/internal/contracts"
)

// Report is the outcome of one evaluation
type Report struct {
	Metrics    []contracts.ErrorMetrics  // (article, algorithm) 별 점수
	Best       []contracts.BestAlgorithm // article별 rank-1, 동률은 모두 유지
	Joined     int                       // forecast와 매칭된 판매 행 수
	Misaligned int                       // window가 7의 배수가 아닌 forecast 행 수
}

// Consolidator scores candidate algorithms against realized sales
// ⭐ SSOT: 최적 알고리즘 선택은 여기서만
type Consolidator struct {
	log zerolog.Logger
}

// New 새 consolidator 생성
func New(log zerolog.Logger) *Consolidator {
	return &Consolidator{log: log.With().Str("component", "consolidator").Logger()}
}

type weekKey struct {
	article int64
	branch  int64
	week    int
}

type scoreKey struct {
	article   int64
	algorithm contracts.Algorithm
}

// Evaluate joins forecasts to actuals on (article, branch, ISO week = window),
// scores each (article, algorithm) and keeps the minimum-MAE algorithms per article.
// today is truncated to a calendar date for the evaluation stamp.
func (c *Consolidator) Evaluate(forecasts []contracts.ForecastRow, actuals []contracts.SalesRecord, today time.Time) Report {
	var report Report

	byWeek := make(map[weekKey][]float64)
	for _, a := range actuals {
		_, week := a.Date.ISOWeek()
		k := weekKey{article: a.Article, branch: a.Branch, week: week}
		byWeek[k] = append(byWeek[k], a.Units)
	}

	scores := make(map[scoreKey]*Accumulator)
	for _, f := range forecasts {
		if f.Window%7 != 0 {
			report.Misaligned++
		}

		units, ok := byWeek[weekKey{article: f.Article, branch: f.Branch, week: f.Window}]
		if !ok {
			continue
		}

		k := scoreKey{article: f.Article, algorithm: f.Algorithm}
		acc := scores[k]
		if acc == nil {
			acc = &Accumulator{}
			scores[k] = acc
		}
		for _, u := range units {
			acc.Add(f.Forecast, u)
			report.Joined++
		}
	}

	if report.Misaligned > 0 {
		c.log.Warn().
			Int("misaligned", report.Misaligned).
			Int("forecasts", len(forecasts)).
			Msg("forecast windows are not whole weeks; ISO week join is approximate")
	}

	keys := make([]scoreKey, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].article != keys[j].article {
			return keys[i].article < keys[j].article
		}
		return keys[i].algorithm < keys[j].algorithm
	})

	report.Metrics = make([]contracts.ErrorMetrics, 0, len(keys))
	for _, k := range keys {
		acc := scores[k]
		report.Metrics = append(report.Metrics, contracts.ErrorMetrics{
			Article:   k.article,
			Algorithm: k.algorithm,
			MAE:       acc.MAE(),
			RMSE:      acc.RMSE(),
			SMAPE:     acc.SMAPE(),
			Samples:   acc.N(),
		})
	}

	report.Best = SelectBest(report.Metrics, today)

	c.log.Info().
		Int("forecasts", len(forecasts)).
		Int("actuals", len(actuals)).
		Int("joined", report.Joined).
		Int("articles", len(report.Best)).
		Msg("evaluation complete")

	return report
}

// SelectBest keeps, per article, every algorithm whose MAE equals the article minimum
// (min-rank semantics). metrics must be grouped by article.
func SelectBest(metrics []contracts.ErrorMetrics, today time.Time) []contracts.BestAlgorithm {
	y, m, d := today.Date()
	evaluated := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	minMAE := make(map[int64]float64)
	for _, em := range metrics {
		if cur, ok := minMAE[em.Article]; !ok || em.MAE < cur {
			minMAE[em.Article] = em.MAE
		}
	}

	var best []contracts.BestAlgorithm
	for _, em := range metrics {
		if em.MAE != minMAE[em.Article] {
			continue
		}
		best = append(best, contracts.BestAlgorithm{
			Article:        em.Article,
			Algorithm:      em.Algorithm,
			MAE:            em.MAE,
			RMSE:           em.RMSE,
			SMAPE:          em.SMAPE,
			EvaluationDate: evaluated,
		})
	}
	return best
}
