package pipeline

import (
	"context"
	"fmt"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/internal/forecast"
	"github.com/wonny/supplycast/internal/reference"
	"github.com/wonny/supplycast/pkg/database"
)

// extend 20 → 30: product/site 매핑과 item master 병합
func (r *Runner) extend(ctx context.Context, item contracts.WorkItem) (stepResult, error) {
	exe := item.Execution

	path := r.deps.Layout.Forecast(exe.Name)
	rows, err := artifacts.ReadForecast(path)
	if err != nil {
		return stepResult{}, fmt.Errorf("%w: read %s: %w", ErrArtifact, path, err)
	}

	history, err := r.deps.History.LoadOrBuild(ctx, exe.ExtSupplierCode, exe.Label(), windowOf(rows))
	if err != nil {
		return stepResult{}, err
	}

	mapping, err := r.deps.Reference.Load(ctx)
	if err != nil {
		return stepResult{}, fmt.Errorf("load reference mapping: %w: %w", database.ErrUnavailable, err)
	}

	extended, missing := mapping.Extend(rows)
	if len(missing) > 0 {
		missingPath := r.deps.Layout.MissingMapping(exe.Name)
		if err := artifacts.WriteMissingMapping(missingPath, missing); err != nil {
			r.log.Error().Err(err).Str("path", missingPath).Msg("failed to write missing mapping artifact")
		}
		return stepResult{}, fmt.Errorf("%d unmapped (article, branch) pairs, see %s: %w",
			len(missing), missingPath, reference.ErrMissingMapping)
	}

	index := history.ItemIndex()
	withItem := 0
	for i := range extended {
		if m, ok := index[extended[i].Key()]; ok {
			extended[i].Item = m
			extended[i].HasItem = true
			withItem++
		}
	}

	out := r.deps.Layout.Extended(exe.Name)
	if err := artifacts.WriteExtended(out, extended); err != nil {
		return stepResult{}, fmt.Errorf("%w: write %s: %w", ErrArtifact, out, err)
	}

	return stepResult{detail: fmt.Sprintf("%d rows extended, %d with item master", len(extended), withItem)}, nil
}

// windowOf returns the forecast window of the run
func windowOf(rows []contracts.ForecastRow) int {
	for _, r := range rows {
		if r.Window > 0 {
			return r.Window
		}
	}
	return forecast.DefaultWindow
}
