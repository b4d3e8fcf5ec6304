package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/chart"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/internal/notify"
	"github.com/wonny/supplycast/internal/publication"
	"github.com/wonny/supplycast/internal/valorization"
	"github.com/wonny/supplycast/pkg/database"
)

// MiniChartDays is the sales span of the header mini chart
const MiniChartDays = 150

// publish 40 → 45 → 50: header 가치평가, batch insert, archive
func (r *Runner) publish(ctx context.Context, item contracts.WorkItem) (stepResult, error) {
	exe := item.Execution

	path := r.deps.Layout.Final(exe.Name)
	rows, err := artifacts.ReadCharted(path)
	if err != nil {
		return stepResult{}, fmt.Errorf("%w: read %s: %w", ErrArtifact, path, err)
	}

	supplierID, err := r.supplierID(ctx, exe)
	if err != nil {
		return stepResult{}, err
	}

	results, err := publication.BuildResults(item.Execute.ID, supplierID, rows, r.now())
	if err != nil {
		// 누락 id가 있으면 아무것도 insert하지 않음
		return stepResult{}, err
	}

	header := r.valorize(ctx, exe, rows)
	if err := r.deps.Store.UpdateHeader(ctx, item.Execute.ID, header); err != nil {
		return stepResult{}, fmt.Errorf("update header: %w: %w", database.ErrUnavailable, err)
	}

	inserted, pubErr := r.deps.Publisher.Publish(ctx, results, publication.ResultTable)
	if err := publication.CheckComplete(inserted, len(results), pubErr); err != nil {
		return stepResult{}, fmt.Errorf("%d of %d rows inserted, artifacts kept: %w", inserted, len(results), err)
	}

	archived, err := publication.Archive(r.deps.Layout.PublishedArtifacts(exe.Name), r.opts.ArchiveDir)
	if err != nil {
		// 게시는 끝났으므로 상태 전이는 계속
		r.log.Warn().Err(err).Str("execution", exe.Name).Msg("failed to archive published artifacts")
	}

	event := notify.PublishedEvent{
		EventType:       "forecast.published",
		ExecuteID:       item.Execute.ID,
		ExecutionID:     exe.ID,
		ExecutionName:   exe.Name,
		ExtSupplierCode: exe.ExtSupplierCode,
		Rows:            inserted,
		TotalUnits:      header.TotalUnits,
		Timestamp:       r.now().UTC(),
	}

	return stepResult{
		detail: fmt.Sprintf("%d rows published, %d artifacts archived", inserted, len(archived)),
		afterAdvance: func(ctx context.Context) {
			if err := r.deps.Notifier.Published(ctx, event); err != nil {
				r.log.Warn().Err(err).Str("execute_id", event.ExecuteID).Msg("publish notification failed")
			}
		},
	}, nil
}

// RefreshHeader recomputes the valorization header of one execute.
// The status is never changed.
func (r *Runner) RefreshHeader(ctx context.Context, executeID string) (*contracts.HeaderMetrics, error) {
	item, err := r.deps.Store.Get(ctx, executeID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrExecuteNotFound, executeID)
	}
	exe := item.Execution

	path := r.findFinal(exe.Name)
	rows, err := artifacts.ReadCharted(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrArtifact, path, err)
	}

	header := r.valorize(ctx, exe, rows)
	if err := r.deps.Store.UpdateHeader(ctx, executeID, header); err != nil {
		return nil, err
	}

	r.log.Info().
		Str("execute_id", executeID).
		Str("execution", exe.Name).
		Float64("monthly_sales", header.MonthlySalesInMillions).
		Int("products", header.TotalProducts).
		Msg("header refreshed")
	return &header, nil
}

// valorize builds the header totals and the monthly units mini chart
func (r *Runner) valorize(ctx context.Context, exe contracts.Execution, rows []contracts.ChartedRow) contracts.HeaderMetrics {
	extended := valorization.Charted(rows)
	summary := valorization.Valorize(extended)

	graphic, err := r.miniChart(ctx, exe, extended)
	if err != nil {
		// mini chart가 없어도 header 값은 기록
		r.log.Warn().Err(err).Str("execution", exe.Name).Msg("mini chart skipped")
		graphic = ""
	}
	return summary.Header(graphic)
}

// miniChart renders the monthly units of the label's last MiniChartDays of sales
func (r *Runner) miniChart(ctx context.Context, exe contracts.Execution, rows []contracts.ExtendedRow) (string, error) {
	if r.deps.Renderer == nil {
		return "", nil
	}
	history, err := r.deps.History.LoadOrBuild(ctx, exe.ExtSupplierCode, exe.Label(), windowOf(forecastRows(rows)))
	if err != nil {
		return "", err
	}
	if history.Empty() {
		return "", nil
	}
	png, err := r.deps.Renderer.RenderMini(chart.MonthlyUnits(history.Sales, MiniChartDays))
	if err != nil {
		return "", err
	}
	return chart.Encode(png, r.opts.ChartMaxBytes)
}

// findFinal returns the FINAL artifact, falling back to the archived copy
func (r *Runner) findFinal(name string) string {
	path := r.deps.Layout.Final(name)
	if _, err := os.Stat(path); err == nil || r.opts.ArchiveDir == "" {
		return path
	}
	return filepath.Join(r.opts.ArchiveDir, filepath.Base(path))
}

// supplierID prefers the execution's supplier, else the reference table
func (r *Runner) supplierID(ctx context.Context, exe contracts.Execution) (string, error) {
	if exe.SupplierID != "" {
		return exe.SupplierID, nil
	}
	id, err := r.deps.Reference.SupplierID(ctx, exe.ExtSupplierCode)
	if err != nil {
		return "", fmt.Errorf("resolve supplier %d: %w: %w", exe.ExtSupplierCode, database.ErrUnavailable, err)
	}
	return id, nil
}
