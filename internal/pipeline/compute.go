package pipeline

import (
	"context"
	"fmt"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/internal/forecast"
	"github.com/wonny/supplycast/pkg/database"
)

// compute 10 → 15 → 20: 판매 이력 로드, 알고리즘 실행, Solicitudes_Compra 기록
func (r *Runner) compute(ctx context.Context, item contracts.WorkItem) (stepResult, error) {
	exe := item.Execution

	params, err := r.computeParams(ctx, exe)
	if err != nil {
		return stepResult{}, err
	}

	history, err := r.deps.History.LoadOrBuild(ctx, exe.ExtSupplierCode, exe.Label(), params.Window)
	if err != nil {
		return stepResult{}, err
	}
	if history.Empty() {
		return stepResult{}, fmt.Errorf("no sales history for %s: %w", exe.Label(), database.ErrUnavailable)
	}

	rows, err := r.deps.Forecaster.Run(ctx, exe.Method, forecast.Input{
		SupplierCode: exe.ExtSupplierCode,
		Label:        exe.Label(),
		Sales:        history.Sales,
		Params:       params,
	})
	if err != nil {
		return stepResult{}, err
	}

	path := r.deps.Layout.Forecast(exe.Name)
	if err := artifacts.WriteForecast(path, rows); err != nil {
		return stepResult{}, fmt.Errorf("%w: write %s: %w", ErrArtifact, path, err)
	}

	fitFailures := 0
	for _, row := range rows {
		if row.FitFailed {
			fitFailures++
		}
	}

	if r.deps.Precharge != nil {
		if n, err := r.deps.Precharge.Export(ctx, exe.ExtSupplierCode, rows); err != nil {
			// 사이드 채널이라 상태 전이는 막지 않음
			r.log.Warn().Err(err).Str("execution", exe.Name).Msg("precharge export failed")
		} else {
			r.log.Debug().Int("rows", n).Str("execution", exe.Name).Msg("precharge exported")
		}
	}

	return stepResult{
		detail: fmt.Sprintf("%d rows, %d fit failures, window %d", len(rows), fitFailures, params.Window),
	}, nil
}

// checkCompute fails bad parameters at 10 so the watchdog never requeues them
func (r *Runner) checkCompute(ctx context.Context, item contracts.WorkItem) error {
	_, err := r.computeParams(ctx, item.Execution)
	return err
}

func (r *Runner) computeParams(ctx context.Context, exe contracts.Execution) (forecast.Params, error) {
	resolved, err := r.deps.Store.ResolveParameters(ctx, exe.ID)
	if err != nil {
		return forecast.Params{}, fmt.Errorf("resolve parameters: %w: %w", database.ErrUnavailable, err)
	}
	params, err := forecast.FromResolved(exe.Method, resolved)
	if err != nil {
		return forecast.Params{}, err
	}
	if err := forecast.ValidateWindow(exe.Method, params.Window); err != nil {
		return forecast.Params{}, err
	}
	return params, nil
}
