package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/chart"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/pkg/logger"
)

// chart 30 → 35 → 40: 재개 가능한 행별 chart 생성
func (r *Runner) chart(ctx context.Context, item contracts.WorkItem) (stepResult, error) {
	exe := item.Execution

	path := r.deps.Layout.Extended(exe.Name)
	rows, err := artifacts.ReadExtended(path)
	if err != nil {
		r.chartFailure(exe, err)
		return stepResult{}, fmt.Errorf("%w: read %s: %w", ErrArtifact, path, err)
	}

	history, err := r.deps.History.LoadOrBuild(ctx, exe.ExtSupplierCode, exe.Label(), windowOf(forecastRows(rows)))
	if err != nil {
		r.chartFailure(exe, err)
		return stepResult{}, err
	}

	cp, err := chart.OpenCheckpoint(r.deps.Layout.Checkpoint(exe.Name), r.opts.ChartFlushEvery)
	if err != nil {
		r.chartFailure(exe, err)
		return stepResult{}, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	if stale := cp.Retain(rows); stale > 0 {
		r.log.Warn().Str("execution", exe.Name).Int("stale", stale).Msg("dropped stale checkpoint rows")
	}
	if cp.Resumed() > 0 {
		r.log.Info().Str("execution", exe.Name).Int("resumed", cp.Resumed()).Msg("resuming chart checkpoint")
	}

	progressLog := logger.NewAuditFile(r.deps.Layout.Dir, logger.ChartProgressFile(exe.Label()))
	progress := func(done, total int, elapsed time.Duration) {
		if err := progressLog.Printf("%s: %d/%d charts (%s)", exe.Name, done, total, elapsed.Round(time.Second)); err != nil {
			r.log.Warn().Err(err).Msg("failed to append chart progress")
		}
	}

	res, err := r.deps.Charts.Run(ctx, rows, history.Sales, cp, progress)
	if err != nil {
		r.chartFailure(exe, err)
		return stepResult{}, fmt.Errorf("%w: chart run: %w", ErrArtifact, err)
	}

	for _, rej := range res.Rejected {
		if err := r.chartErrors.Printf("%s | article=%d | branch=%d | %v",
			exe.Name, rej.Key.Article, rej.Key.Branch, rej.Err); err != nil {
			r.log.Warn().Err(err).Msg("failed to append chart error")
		}
	}

	final := r.deps.Layout.Final(exe.Name)
	if err := artifacts.WriteCharted(final, res.Rows); err != nil {
		r.chartFailure(exe, err)
		return stepResult{}, fmt.Errorf("%w: write %s: %w", ErrArtifact, final, err)
	}

	return stepResult{
		detail: fmt.Sprintf("%d charted (%d resumed, %d rendered, %d rejected)",
			len(res.Rows), res.Resumed, res.Rendered, len(res.Rejected)),
	}, nil
}

func (r *Runner) chartFailure(exe contracts.Execution, err error) {
	if auditErr := r.chartErrors.Printf("%s | %s | %v", exe.Name, exe.Method, err); auditErr != nil {
		r.log.Warn().Err(auditErr).Msg("failed to append chart error")
	}
}

func forecastRows(rows []contracts.ExtendedRow) []contracts.ForecastRow {
	out := make([]contracts.ForecastRow, len(rows))
	for i, r := range rows {
		out[i] = r.ForecastRow
	}
	return out
}
