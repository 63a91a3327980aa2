package main

import (
	"github.com/phrazzld/recall-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	run := func(command string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg.Database, l)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			l.Info("running migrations", "command", command)
			return postgres.Migrate(cmd.Context(), db, command, l, args...)
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: run("up")},
		&cobra.Command{Use: "down", Short: "Roll back the latest migration", Args: cobra.NoArgs, RunE: run("down")},
		&cobra.Command{Use: "status", Short: "Show migration status", Args: cobra.NoArgs, RunE: run("status")},
		&cobra.Command{Use: "version", Short: "Print the current schema version", Args: cobra.NoArgs, RunE: run("version")},
		&cobra.Command{Use: "create NAME", Short: "Create a new SQL migration", Args: cobra.ExactArgs(1), RunE: run("create")},
	)
	return cmd
}
