package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/pkg/config"
	"github.com/wonny/supplycast/pkg/logger"
)

// StageRunner runs one pipeline stage batch (pipeline.Runner)
type StageRunner interface {
	Run(ctx context.Context, stage contracts.Stage) (*contracts.BatchReport, error)
}

// StageJob runs one pipeline stage on its cron schedule
// ⭐ SSOT: stage 스케줄은 이 Job에서만
type StageJob struct {
	runner   StageRunner
	stage    contracts.Stage
	schedule string
	logger   *logger.Logger

	mu   sync.Mutex
	last string
}

// NewStageJob creates a new stage job
func NewStageJob(runner StageRunner, stage contracts.Stage, schedule string, log *logger.Logger) *StageJob {
	return &StageJob{
		runner:   runner,
		stage:    stage,
		schedule: schedule,
		logger:   log.WithField("stage", stage.ShortName()),
	}
}

// Name returns the job name
func (j *StageJob) Name() string {
	return "stage_" + j.stage.String()
}

// Schedule returns the cron schedule (with seconds)
func (j *StageJob) Schedule() string {
	return j.schedule
}

// Run executes one batch. Failed items are not a job failure;
// only a batch that could not be read is.
func (j *StageJob) Run(ctx context.Context) error {
	report, err := j.runner.Run(ctx, j.stage)
	if err != nil {
		return fmt.Errorf("%s: %w", j.stage, err)
	}

	j.mu.Lock()
	j.last = report.Summary()
	j.mu.Unlock()

	if failed := report.Count(contracts.OutcomeFailed); failed > 0 {
		j.logger.WithField("failed", failed).Warn(report.Summary())
	} else {
		j.logger.Info(report.Summary())
	}
	return nil
}

// LastSummary returns the summary line of the last completed batch
func (j *StageJob) LastSummary() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// StageJobs builds one job per pipeline stage plus the watchdog from cfg.Schedule
func StageJobs(runner StageRunner, cfg *config.Config, log *logger.Logger) []*StageJob {
	schedules := map[contracts.Stage]string{
		contracts.StageCompute: cfg.Schedule.Compute,
		contracts.StageExtend:  cfg.Schedule.Extend,
		contracts.StageChart:   cfg.Schedule.Chart,
		contracts.StagePublish: cfg.Schedule.Publish,
		contracts.StageReclaim: cfg.Schedule.Reclaim,
	}

	stages := append(contracts.AllStages(), contracts.StageReclaim)
	out := make([]*StageJob, 0, len(stages))
	for _, stage := range stages {
		if stage == contracts.StageReclaim && cfg.Pipeline.StaleClaimAfter <= 0 {
			continue
		}
		out = append(out, NewStageJob(runner, stage, schedules[stage], log))
	}
	return out
}
