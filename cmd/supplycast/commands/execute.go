package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <execution-id>",
	Short: "execution 하나를 status 10 으로 대기열에 넣기",
	Long: `새 execute 를 만들어 status 10 (created)으로 대기열에 넣습니다.

같은 execution 의 이전 execute 는 last_execution = false 로 바뀝니다.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		exe, err := a.runner.Dispatch(ctx, args[0])
		if err != nil {
			PrintError(err.Error())
			return err
		}

		PrintSuccess("execute dispatched")
		PrintKeyValue("Execute", exe.ID, 10)
		PrintKeyValue("Execution", exe.ExecutionID, 10)
		PrintKeyValue("Status", exe.Status.String(), 10)
		return nil
	},
}

var refreshHeaderCmd = &cobra.Command{
	Use:   "refresh-header <execute-id>",
	Short: "execute header 가치평가 다시 계산",
	Long: `FINAL artifact 로부터 header 지표와 mini chart 를 다시 계산합니다.

작업 디렉터리에 없으면 archive 에서 찾습니다. 상태는 바꾸지 않습니다.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		h, err := a.runner.RefreshHeader(ctx, args[0])
		if err != nil {
			PrintError(err.Error())
			return err
		}

		PrintSuccess("header refreshed")
		PrintKeyValue("Sales (M)", strconv.FormatFloat(h.MonthlySalesInMillions, 'f', 2, 64), 14)
		PrintKeyValue("Purchases (M)", strconv.FormatFloat(h.MonthlyPurchasesInMillions, 'f', 2, 64), 14)
		PrintKeyValue("Margin (M)", strconv.FormatFloat(h.MonthlyNetMarginInMillions, 'f', 2, 64), 14)
		PrintKeyValue("Products", strconv.Itoa(h.TotalProducts), 14)
		PrintKeyValue("Units", strconv.FormatFloat(h.TotalUnits, 'f', 0, 64), 14)
		PrintKeyValue("Graphic", fmt.Sprintf("%d bytes", len(h.Graphic)), 14)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "상태별 execute 현황",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		PrintHeader("📊 Execute Status")

		health, err := a.db.HealthCheck(ctx)
		if err != nil {
			PrintError(fmt.Sprintf("database unhealthy: %v", err))
			return err
		}
		PrintKeyValue("Database", fmt.Sprintf("ok in %s (%d/%d conns)",
			health.ResponseTime.Round(time.Millisecond), health.Stats.AcquiredConns, health.Stats.TotalConns), 10)
		PrintKeyValue("Upstream", upstreamState(a), 10)
		PrintSeparator()

		groups, err := a.runner.Status(ctx)
		if err != nil {
			PrintError(err.Error())
			return err
		}

		widths := []int{6, 12, 6}
		PrintTableHeader([]string{"CODE", "STATUS", "COUNT"}, widths)
		for _, g := range groups {
			PrintTableRow([]string{strconv.Itoa(int(g.Status)), g.Status.String(), strconv.Itoa(len(g.Items))}, widths)
		}
		PrintSeparator()

		for _, g := range groups {
			if !g.Status.IsClaim() || len(g.Items) == 0 {
				continue
			}
			PrintWarning(fmt.Sprintf("%d execute(s) held at %s", len(g.Items), g.Status))
			for _, it := range g.Items {
				fmt.Printf("   %s  %s  %s\n", it.Execute.ID, it.Execution.Name, it.Execute.Timestamp.Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

var invalidateReferenceCmd = &cobra.Command{
	Use:   "reference-invalidate",
	Short: "캐시된 product/site 매핑 삭제",
	Long: `redis 에 캐시된 product/site 매핑을 지웁니다.

다음 extend 실행이 primary store 에서 매핑을 다시 읽습니다. REDIS_ENABLED=false 이면 아무것도 하지 않습니다.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.resolver.Invalidate(ctx); err != nil {
			PrintError(err.Error())
			return err
		}
		PrintSuccess("reference cache invalidated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd, refreshHeaderCmd, statusCmd, invalidateReferenceCmd)
}

func upstreamState(a *app) string {
	if a.upstream == nil {
		return "cache-only"
	}
	return "connected"
}

// parseSupplier parses the ext supplier code argument
func parseSupplier(arg string) (int64, error) {
	code, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("invalid supplier code %q", arg)
	}
	return code, nil
}
