package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "supplycast",
	Short: "supplycast - 공급사 수요 예측 파이프라인",
	Long: `supplycast Unified CLI

공급사별 판매 이력으로 보충 수요를 예측하고
execute 상태(10 → 50)를 따라 계산, 병합, chart, 게시를 진행합니다.

각 stage 명령은 flag 없이 DB 상태만 보고 동작합니다.
행 단위 실패는 출력 후 계속하며 exit code는 0 입니다.

Usage:
  go run ./cmd/supplycast [command]

Examples:
  go run ./cmd/supplycast migrate
  go run ./cmd/supplycast dispatch <execution-id>
  go run ./cmd/supplycast compute
  go run ./cmd/supplycast scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug 로그 출력")
}
