package main

import (
	"log"

	"github.com/jacl-coder/RhodesGacha-Server/pkg/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "数据库迁移",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "执行全部迁移",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.InitDatabase(cmd.Context()); err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(cmd.Context(), db.DB, db.Driver); err != nil {
			return err
		}
		return printVersion(cmd)
	},
}

var migrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "回滚全部迁移后重新执行（会清空数据）",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.InitDatabase(cmd.Context()); err != nil {
			return err
		}
		defer db.Close()

		log.Println("重置数据库...")
		if err := db.Reset(cmd.Context(), db.DB, db.Driver); err != nil {
			return err
		}
		if err := db.Migrate(cmd.Context(), db.DB, db.Driver); err != nil {
			return err
		}
		return printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) error {
	version, err := db.MigrationVersion(cmd.Context(), db.DB, db.Driver)
	if err != nil {
		return err
	}
	log.Printf("数据库迁移完成，当前版本: %d", version)
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateResetCmd)
}
