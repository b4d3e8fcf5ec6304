package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/supplycast/internal/backtest"
	"github.com/wonny/supplycast/internal/consolidator"
	"github.com/wonny/supplycast/internal/contracts"
	"github.com/wonny/supplycast/internal/forecast"
	"github.com/wonny/supplycast/internal/sales"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <supplier>",
	Short: "공급자별 알고리즘 정확도 평가 및 최적 알고리즘 저장",
	Long: `supplier 의 모든 {supplier}_*_Solicitudes_Compra.csv 를 실제 판매와 비교합니다.

(article, branch, ISO week) 로 join 후 MAE/RMSE/SMAPE 를 계산하고
article 별 MAE 최소 알고리즘을 algoritmo_optimo 테이블에 upsert 합니다.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		supplier, err := parseSupplier(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		PrintHeader(fmt.Sprintf("🎯 Evaluate supplier %d", supplier))

		forecasts, hist, err := loadEvaluationInputs(ctx, a, supplier)
		if err != nil {
			PrintError(err.Error())
			return err
		}

		report := consolidator.New(a.log.Zerolog()).Evaluate(forecasts, hist.Sales, time.Now())
		if report.Misaligned > 0 {
			PrintWarning(fmt.Sprintf("%d forecast rows have a window that is not a multiple of 7", report.Misaligned))
		}

		if err := consolidator.NewStore(a.db.Pool).Upsert(ctx, report.Best); err != nil {
			PrintError(err.Error())
			return err
		}

		widths := []int{10, 10, 10, 10, 10}
		PrintTableHeader([]string{"ARTICLE", "ALGORITHM", "MAE", "RMSE", "SMAPE"}, widths)
		for _, b := range report.Best {
			PrintTableRow([]string{
				strconv.FormatInt(b.Article, 10),
				string(b.Algorithm),
				strconv.FormatFloat(b.MAE, 'f', 3, 64),
				strconv.FormatFloat(b.RMSE, 'f', 3, 64),
				strconv.FormatFloat(b.SMAPE, 'f', 2, 64),
			}, widths)
		}
		PrintSeparator()
		PrintSuccess(fmt.Sprintf("%d joined rows, %d best algorithms saved", report.Joined, len(report.Best)))
		return nil
	},
}

var backtestCmd = &cobra.Command{
	Use:   "backtest <supplier>",
	Short: "공급자별 rolling-window backtest",
	Long: `supplier 의 판매 이력으로 (article, branch, algorithm) 별 rolling backtest 를 실행하고
{supplier}_Backtest.csv 로 결과를 기록합니다.

Window 52, horizon 4, step 1 (판매 관측치 기준).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		supplier, err := parseSupplier(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		PrintHeader(fmt.Sprintf("🔬 Backtest supplier %d", supplier))

		forecasts, hist, err := loadEvaluationInputs(ctx, a, supplier)
		if err != nil {
			PrintError(err.Error())
			return err
		}

		engine, err := backtest.NewEngine(backtest.DefaultConfig(), a.log.Zerolog())
		if err != nil {
			return err
		}

		results, err := engine.Run(ctx, hist.Sales, forecasts)
		if err != nil {
			PrintError(err.Error())
			return err
		}

		path := a.layout.Backtest(supplier)
		if err := backtest.WriteReport(path, results); err != nil {
			PrintError(err.Error())
			return err
		}

		PrintSuccess(fmt.Sprintf("%d windows written to %s", len(results), path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd, backtestCmd)
}

// loadEvaluationInputs reads the supplier's forecast files and its sales history.
// The cache label comes from the forecast file names.
func loadEvaluationInputs(ctx context.Context, a *app, supplier int64) ([]contracts.ForecastRow, *sales.History, error) {
	forecasts, err := consolidator.LoadForecasts(a.layout, supplier)
	if err != nil {
		return nil, nil, err
	}

	label, err := consolidator.SupplierLabel(a.layout, supplier)
	if err != nil {
		return nil, nil, err
	}

	hist, err := a.provider.LoadOrBuild(ctx, supplier, label, forecast.DefaultWindow)
	if err != nil {
		return nil, nil, err
	}
	if hist.Empty() {
		return nil, nil, fmt.Errorf("no sales history for supplier %d", supplier)
	}
	return forecasts, hist, nil
}
