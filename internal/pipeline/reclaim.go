package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/pkg/metrics"
)

// Reclaim is the stale-claim watchdog.
// 15 → 10 and 35 → 30 are requeued; 45 is only reported, committed batches may exist.
func (r *Runner) Reclaim(ctx context.Context) (*contracts.BatchReport, error) {
	stage := contracts.StageReclaim
	report := contracts.NewBatchReport(stage.String())
	log := r.log.With().Str("stage", stage.ShortName()).Logger()

	if r.opts.StaleClaimAfter <= 0 {
		log.Info().Msg("watchdog disabled (STALE_CLAIM_AFTER=0)")
		report.Finish()
		return report, nil
	}

	cutoff := r.now().Add(-r.opts.StaleClaimAfter)
	for _, status := range []contracts.Status{
		contracts.StatusComputing,
		contracts.StatusCharting,
		contracts.StatusPublishing,
	} {
		items, err := r.deps.Store.ListStale(ctx, status, cutoff)
		if err != nil {
			report.Finish()
			return report, fmt.Errorf("list stale %s executes: %w", status, err)
		}
		metrics.StalledClaims.WithLabelValues(status.String()).Set(float64(len(items)))

		for _, item := range items {
			report.Add(r.reclaimItem(ctx, item, status))
		}
	}

	report.Finish()
	metrics.ObserveBatch(report)
	log.Info().Msg(report.Summary())
	return report, nil
}

func (r *Runner) reclaimItem(ctx context.Context, item contracts.WorkItem, status contracts.Status) contracts.ItemResult {
	started := time.Now()
	stage := contracts.StageReclaim
	log := r.itemLogger(stage, item)
	res := contracts.ItemResult{
		ExecuteID:     item.Execute.ID,
		ExecutionName: item.Execution.Name,
	}
	age := r.now().Sub(item.Execute.Timestamp).Round(time.Second)

	target, ok := status.RequeueTarget()
	if !ok {
		log.Warn().Dur("age", age).Msgf("stalled at %d, needs operator", status)
		if err := r.pipelineErrors.Printf("%s | execute=%s | execution=%s | stalled at %d for %s, not requeued",
			stage.ShortName(), item.Execute.ID, item.Execution.Name, status, age); err != nil {
			r.log.Warn().Err(err).Msg("failed to append pipeline audit line")
		}
		res.Outcome = contracts.OutcomeSkipped
		res.Detail = fmt.Sprintf("stalled at %d for %s, needs operator", status, age)
		res.Duration = time.Since(started)
		return res
	}

	if err := r.deps.Store.Transition(ctx, item.Execute.ID, status, target); err != nil {
		if errors.Is(err, contracts.ErrClaimLost) {
			res.Outcome = contracts.OutcomeSkipped
			res.Detail = "claim moved on"
			res.Duration = time.Since(started)
			return res
		}
		return r.fail(stage, item, res, started, err)
	}

	log.Warn().Dur("age", age).Msgf("stale claim requeued %d → %d", status, target)
	res.Outcome = contracts.OutcomeSucceeded
	res.Detail = fmt.Sprintf("requeued %d → %d after %s", status, target, age)
	res.Duration = time.Since(started)
	return res
}

// StatusGroup is every live execute at one status
type StatusGroup struct {
	Status contracts.Status
	Items  []contracts.WorkItem
}

// Status lists live executes grouped by status, in pipeline order
func (r *Runner) Status(ctx context.Context) ([]StatusGroup, error) {
	groups := make([]StatusGroup, 0, len(contracts.AllStatuses()))
	for _, st := range contracts.AllStatuses() {
		items, err := r.deps.Store.ListByStatus(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("list %s executes: %w", st, err)
		}
		groups = append(groups, StatusGroup{Status: st, Items: items})
	}
	return groups, nil
}

// Dispatch creates a new execute for an execution at status 10
func (r *Runner) Dispatch(ctx context.Context, executionID string) (*contracts.ExecutionExecute, error) {
	ee, err := r.deps.Store.Dispatch(ctx, executionID)
	if err != nil {
		return nil, err
	}
	r.log.Info().Str("execution_id", executionID).Str("execute_id", ee.ID).Msg("execute dispatched")
	return ee, nil
}
