package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"labhub/internal/config"
	"labhub/internal/store"
)

func newMigrateCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var dryRun bool
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DBTarget() == "" {
				return fmt.Errorf("db target is required for driver %s", cfg.DBDriver)
			}
			w := cmd.OutOrStdout()

			if inspect || dryRun {
				plan, err := store.InspectMigrations(cfg.DBDriver, cfg.DBTarget())
				if err != nil {
					return fmt.Errorf("inspect migrations: %w", err)
				}
				if out.structured() {
					return out.write(w, plan)
				}
				return writeMigrationPlan(w, plan)
			}

			// Opening the store applies pending migrations, as srv does on start.
			st, err := store.OpenDriver(cfg.DBDriver, cfg.DBTarget())
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer st.Close()

			if out.structured() {
				plan, err := st.MigrationPlan()
				if err != nil {
					return err
				}
				return out.write(w, plan)
			}
			return writePlain(w, "Migrations applied successfully.\n")
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status")

	return cmd
}

func writeMigrationPlan(w io.Writer, plan *store.MigrationStatus) error {
	if err := writePlain(w, "Driver: %s\nCurrent version: %d\nAvailable version: %d\n", plan.Driver, plan.CurrentVersion, plan.AvailableVersion); err != nil {
		return err
	}
	if len(plan.Pending) == 0 {
		return writePlain(w, "No pending migrations.\n")
	}
	if err := writePlain(w, "Pending migrations: %d\n", len(plan.Pending)); err != nil {
		return err
	}
	for _, m := range plan.Pending {
		if err := writePlain(w, "  %d: %s\n", m.Version, m.Description); err != nil {
			return err
		}
	}
	return nil
}
