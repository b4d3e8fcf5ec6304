package chart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/internal/forecast"
	"github.com/wonny/supplycast/pkg/metrics"
)

// HistoryDays is the trailing sales span drawn per item
const HistoryDays = 50

// Options tunes one chart run
type Options struct {
	MaxBytes int // 인코딩된 chart 최대 크기
	Workers  int // 병렬 렌더러 수
}

// Progress is called after every checkpoint flush
type Progress func(done, total int, elapsed time.Duration)

// Rejection is an item excluded from the output
type Rejection struct {
	Key contracts.SeriesKey
	Err error
}

// Result summarizes one chart run
type Result struct {
	Rows     []contracts.ChartedRow
	Resumed  int
	Rendered int
	Rejected []Rejection
}

// Generator renders per-item charts and confidence bounds into a checkpoint
// ⭐ SSOT: 진단 chart 생성은 여기서만
type Generator struct {
	renderer *Renderer
	opts     Options
	log      zerolog.Logger
}

// NewGenerator 새 chart generator 생성
func NewGenerator(renderer *Renderer, opts Options, log zerolog.Logger) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Generator{
		renderer: renderer,
		opts:     opts,
		log:      log.With().Str("component", "chart.generator").Logger(),
	}
}

// Run charts every row not yet in cp. Rendering runs on opts.Workers goroutines;
// checkpoint writes stay serialized. A failing flush aborts the run.
func (g *Generator) Run(ctx context.Context, rows []contracts.ExtendedRow, sales []contracts.SalesRecord, cp *Checkpoint, progress Progress) (*Result, error) {
	started := time.Now()
	end := forecast.MaxDate(sales)
	_, groups := forecast.GroupByKey(sales)

	res := &Result{Resumed: cp.Resumed()}
	var todo []contracts.ExtendedRow
	for _, r := range rows {
		if cp.Done(r.Key()) {
			continue
		}
		todo = append(todo, r)
	}
	metrics.ChartsRenderedTotal.WithLabelValues("resumed").Add(float64(len(rows) - len(todo)))

	g.log.Info().
		Int("total", len(rows)).
		Int("resumed", len(rows)-len(todo)).
		Int("workers", g.opts.Workers).
		Msg("chart run started")

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)

	for _, row := range todo {
		row := row
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			charted, err := g.chartRow(row, groups[row.Key()], end)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				metrics.ChartsRenderedTotal.WithLabelValues("rejected").Inc()
				g.log.Warn().Err(err).
					Int64("article", row.Article).
					Int64("branch", row.Branch).
					Msg("chart rejected")
				res.Rejected = append(res.Rejected, Rejection{Key: row.Key(), Err: err})
				return nil
			}

			metrics.ChartsRenderedTotal.WithLabelValues("ok").Inc()
			res.Rendered++
			flushed, err := cp.Add(charted)
			if err != nil {
				return err
			}
			if flushed && progress != nil {
				progress(cp.Len(), len(rows), time.Since(started))
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		// 진행분은 남겨 재시작 시 이어서 처리
		if flushErr := cp.Flush(); flushErr != nil {
			g.log.Error().Err(flushErr).Msg("final checkpoint flush failed")
		}
		return nil, err
	}
	if err := cp.Flush(); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(cp.Len(), len(rows), time.Since(started))
	}

	res.Rows = cp.Rows()
	g.log.Info().
		Int("rendered", res.Rendered).
		Int("rejected", len(res.Rejected)).
		Dur("elapsed", time.Since(started)).
		Msg("chart run finished")
	return res, nil
}

func (g *Generator) chartRow(row contracts.ExtendedRow, history []contracts.SalesRecord, end time.Time) (contracts.ChartedRow, error) {
	start, daily := DailyWindow(history, end, HistoryDays)

	png, err := g.renderer.RenderDetail(Detail{
		Article:       row.Article,
		Branch:        row.Branch,
		Start:         start,
		Daily:         daily,
		Forecast:      row.Forecast,
		Average:       row.Average,
		SalesLast:     row.SalesLast,
		SalesPrevious: row.SalesPrevious,
		SalesSameYear: row.SalesSameYear,
	})
	if err != nil {
		return contracts.ChartedRow{}, fmt.Errorf("render %d/%d: %w", row.Article, row.Branch, err)
	}

	encoded, err := Encode(png, g.opts.MaxBytes)
	if err != nil {
		return contracts.ChartedRow{}, err
	}

	b := ConfidenceBounds(daily, row.Forecast, row.Window)
	return contracts.ChartedRow{
		ExtendedRow:     row,
		Graphic:         encoded,
		ConfidenceLevel: b.Level,
		ErrorMargin:     b.ErrorMargin,
		LowerBound:      b.Lower,
		UpperBound:      b.Upper,
	}, nil
}
