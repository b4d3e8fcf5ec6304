package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/chart"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/internal/forecast"
	"github.com/wonny/supplycast/internal/notify"
	"github.com/wonny/supplycast/internal/reference"
	"github.com/wonny/supplycast/internal/sales"
	"github.com/wonny/supplycast/pkg/logger"
	"github.com/wonny/supplycast/pkg/metrics"
)

// HistoryLoader serves supplier sales history (sales.Provider)
type HistoryLoader interface {
	LoadOrBuild(ctx context.Context, supplier int64, label string, window int) (*sales.History, error)
}

// MappingLoader serves reference ids (reference.Resolver)
type MappingLoader interface {
	Load(ctx context.Context) (*reference.Mapping, error)
	SupplierID(ctx context.Context, extCode int64) (string, error)
}

// Publisher inserts result rows downstream (publication.Adapter)
type Publisher interface {
	Publish(ctx context.Context, rows []contracts.ExecutionExecuteResult, destination string) (int, error)
}

// PrechargeExporter writes forecasts back to the warehouse (sales.PrechargeExporter)
type PrechargeExporter interface {
	Export(ctx context.Context, supplier int64, rows []contracts.ForecastRow) (int, error)
}

// Deps are the collaborators of a Runner
type Deps struct {
	Store      Store
	Layout     artifacts.Layout
	History    HistoryLoader
	Reference  MappingLoader
	Forecaster *forecast.Forecaster
	Charts     *chart.Generator
	Renderer   *chart.Renderer
	Publisher  Publisher
	Precharge  PrechargeExporter // nil = export off
	Notifier   notify.Notifier   // nil = notify.Nop
}

// Options are the stage tuning knobs
type Options struct {
	ArchiveDir      string
	ChartMaxBytes   int
	ChartFlushEvery int
	StaleClaimAfter time.Duration // 0 = watchdog off
}

// Runner executes pipeline stages over batches of executes
// ⭐ SSOT: stage 실행과 상태 전이 순서는 여기서만
type Runner struct {
	deps Deps
	opts Options
	log  zerolog.Logger
	now  func() time.Time

	pipelineErrors *logger.AuditFile
	chartErrors    *logger.AuditFile
}

// NewRunner 새 stage runner 생성
func NewRunner(deps Deps, opts Options, log zerolog.Logger) *Runner {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	return &Runner{
		deps:           deps,
		opts:           opts,
		log:            log.With().Str("component", "pipeline").Logger(),
		now:            time.Now,
		pipelineErrors: logger.NewAuditFile(deps.Layout.Dir, logger.PipelineErrorsFile),
		chartErrors:    logger.NewAuditFile(deps.Layout.Dir, logger.ChartErrorsFile),
	}
}

// stepResult is what a stage step reports for one item
type stepResult struct {
	detail string
	// afterAdvance runs once the item reached the stage target status
	afterAdvance func(ctx context.Context)
}

type stepFunc func(ctx context.Context, item contracts.WorkItem) (stepResult, error)

// checkFunc rejects an item before it is claimed; the item stays at the source status
type checkFunc func(ctx context.Context, item contracts.WorkItem) error

// Run executes one work stage over every execute at its source status
func (r *Runner) Run(ctx context.Context, stage contracts.Stage) (*contracts.BatchReport, error) {
	switch stage {
	case contracts.StageCompute:
		return r.runStage(ctx, stage, r.checkCompute, r.compute)
	case contracts.StageExtend:
		return r.runStage(ctx, stage, nil, r.extend)
	case contracts.StageChart:
		return r.runStage(ctx, stage, nil, r.chart)
	case contracts.StagePublish:
		return r.runStage(ctx, stage, nil, r.publish)
	case contracts.StageReclaim:
		return r.Reclaim(ctx)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

// runStage reads the batch at the source status and processes it row by row.
// One failing row never stops the rest of the batch.
func (r *Runner) runStage(ctx context.Context, stage contracts.Stage, check checkFunc, step stepFunc) (*contracts.BatchReport, error) {
	from, claim, to := stage.Transition()
	report := contracts.NewBatchReport(stage.String())
	log := r.log.With().Str("stage", stage.ShortName()).Logger()

	items, err := r.deps.Store.ListByStatus(ctx, from)
	if err != nil {
		report.Finish()
		return report, fmt.Errorf("list %s executes: %w", from, err)
	}

	if len(items) == 0 {
		log.Info().Int("status", int(from)).Msg("no executes to process")
		report.Finish()
		metrics.ObserveBatch(report)
		return report, nil
	}

	log.Info().Int("items", len(items)).Int("status", int(from)).Msgf("%s started", stage.Description())

	for _, item := range items {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("batch interrupted")
			break
		}
		report.Add(r.processItem(ctx, stage, item, from, claim, to, check, step))
	}

	report.Finish()
	metrics.ObserveBatch(report)
	log.Info().Msg(report.Summary())
	return report, nil
}

func (r *Runner) processItem(
	ctx context.Context,
	stage contracts.Stage,
	item contracts.WorkItem,
	from, claim, to contracts.Status,
	check checkFunc,
	step stepFunc,
) contracts.ItemResult {
	started := time.Now()
	res := contracts.ItemResult{
		ExecuteID:     item.Execute.ID,
		ExecutionName: item.Execution.Name,
	}
	log := r.itemLogger(stage, item)

	if check != nil {
		if err := check(ctx, item); err != nil {
			return r.fail(stage, item, res, started, err)
		}
	}

	held := from
	if claim != 0 {
		if err := r.deps.Store.Transition(ctx, item.Execute.ID, from, claim); err != nil {
			if errors.Is(err, contracts.ErrClaimLost) {
				log.Info().Msg("claim lost, skipped")
				res.Outcome = contracts.OutcomeSkipped
				res.Detail = "claim lost"
				res.Duration = time.Since(started)
				return res
			}
			return r.fail(stage, item, res, started, err)
		}
		held = claim
	}

	out, err := step(ctx, item)
	if err != nil {
		return r.fail(stage, item, res, started, err)
	}

	if err := r.deps.Store.Transition(ctx, item.Execute.ID, held, to); err != nil {
		if errors.Is(err, contracts.ErrClaimLost) {
			// 다른 runner가 먼저 전진시킴
			log.Warn().Msgf("advance to %d lost, skipped", to)
			res.Outcome = contracts.OutcomeSkipped
			res.Detail = "advanced elsewhere"
			res.Duration = time.Since(started)
			return res
		}
		return r.fail(stage, item, res, started, err)
	}

	if out.afterAdvance != nil {
		out.afterAdvance(ctx)
	}

	res.Outcome = contracts.OutcomeSucceeded
	res.Detail = out.detail
	res.Duration = time.Since(started)
	log.Info().Str("detail", out.detail).Dur("elapsed", res.Duration).Msgf("advanced to %d", to)
	return res
}

// fail records a failed item; the status stays where the failure found it
func (r *Runner) fail(stage contracts.Stage, item contracts.WorkItem, res contracts.ItemResult, started time.Time, err error) contracts.ItemResult {
	res.Outcome = contracts.OutcomeFailed
	res.Kind = Classify(err)
	res.Err = err
	res.Detail = err.Error()
	res.Duration = time.Since(started)

	ilog := r.itemLogger(stage, item)
	ilog.Error().Err(err).Str("kind", string(res.Kind)).Msg("execute failed")

	if auditErr := r.pipelineErrors.Printf("%s | execute=%s | execution=%s | algorithm=%s | supplier=%d | kind=%s | %v",
		stage.ShortName(), item.Execute.ID, item.Execution.Name, item.Execution.Method,
		item.Execution.ExtSupplierCode, res.Kind, err); auditErr != nil {
		r.log.Warn().Err(auditErr).Msg("failed to append pipeline audit line")
	}
	return res
}

func (r *Runner) itemLogger(stage contracts.Stage, item contracts.WorkItem) zerolog.Logger {
	return r.log.With().
		Str("stage", stage.ShortName()).
		Str("execute_id", item.Execute.ID).
		Str("execution", item.Execution.Name).
		Str("algorithm", string(item.Execution.Method)).
		Int64("supplier", item.Execution.ExtSupplierCode).
		Logger()
}
