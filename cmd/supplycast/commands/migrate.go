package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/supplycast/pkg/config"
	"github.com/wonny/supplycast/pkg/database"
	"github.com/wonny/supplycast/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB schema migration 적용",
	Long: `내장된 SQL migration 을 DATABASE_URL 에 적용합니다.

MIGRATIONS_VERSION 이 0 이면 최신 버전까지 올립니다.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.New(cfg)

		PrintHeader("🗄️  Database Migration")

		res, err := database.Migrate(cfg.Database.URL, cfg.Database.MigrationsVersion, logger.Component(log.Zerolog(), "migrate"))
		if err != nil {
			PrintError(err.Error())
			return err
		}

		PrintKeyValue("Version", fmt.Sprintf("%d", res.Version), 8)
		PrintKeyValue("Dirty", fmt.Sprintf("%t", res.Dirty), 8)
		if res.Changed {
			PrintSuccess("migrations applied")
		} else {
			PrintInfo("schema already up to date")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
