package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/pkg/database"
)

// stageCommand builds the flagless command of one pipeline stage
func stageCommand(stage contracts.Stage, long string) *cobra.Command {
	return &cobra.Command{
		Use:   stage.String(),
		Short: fmt.Sprintf("%s %s", stage.ShortName(), stage.Description()),
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(stage)
		},
	}
}

func init() {
	rootCmd.AddCommand(
		stageCommand(contracts.StageCompute, `status 10 execute를 claim(15)하고 예측을 계산합니다 (→ 20).

- 모델 파라미터 해석 (override > default)
- 판매 이력 캐시 로드 또는 upstream 재생성
- 알고리즘 실행 후 {name}_Solicitudes_Compra.csv 기록`),
		stageCommand(contracts.StageExtend, `status 20 execute에 product/site id와 item master를 병합합니다 (→ 30).

매핑 누락 시 {name}_Errores_Missing_UUID.csv 를 남기고 상태는 그대로 둡니다.`),
		stageCommand(contracts.StageChart, `status 30 execute를 claim(35)하고 행별 chart를 생성합니다 (→ 40).

중단 후 재실행하면 _Con_Graficos checkpoint 에서 이어서 처리합니다.`),
		stageCommand(contracts.StagePublish, `status 40 execute를 claim(45)하고 결과를 게시합니다 (→ 50).

- header 가치평가 + mini chart
- 500행 batch insert (batch 단위 commit)
- 전체 성공 시에만 artifact archive`),
		stageCommand(contracts.StageReclaim, `STALE_CLAIM_AFTER 보다 오래된 claim을 되돌립니다.

15 → 10, 35 → 30. 45는 보고만 합니다.`),
	)
}

// runStage runs one batch and prints its report.
// Row failures and an unreachable database both end with exit code 0.
func runStage(stage contracts.Stage) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	PrintHeader(fmt.Sprintf("%s - %s", stage.ShortName(), stage.Description()))

	a, err := newApp(ctx)
	if err != nil {
		if errors.Is(err, database.ErrUnavailable) {
			PrintWarning(fmt.Sprintf("database unavailable, batch skipped this cycle: %v", err))
			return nil
		}
		return err
	}
	defer a.close()

	report, err := a.runner.Run(ctx, stage)
	if err != nil {
		a.log.WithError(err).Error("stage batch failed")
		PrintError(err.Error())
		return nil
	}

	PrintReport(report)
	return nil
}
