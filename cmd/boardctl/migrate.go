package main

import (
	"fmt"
	"strconv"
	"time"

	"projectboard/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run schema operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(false)
			if err != nil {
				return err
			}
			migrator, err := database.NewMigrator(rt.db)
			if err != nil {
				return err
			}
			ran, err := migrator.Up(cmd.Context())
			for _, m := range ran {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", m.ID())
			}
			if err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			if len(ran) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate for every model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(false)
			if err != nil {
				return err
			}
			rt.cfg.DBSchemaMode = string(database.SchemaModeAuto)
			if err := database.ApplySchema(cmd.Context(), rt.db, rt.cfg); err != nil {
				return fmt.Errorf("auto schema apply failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "automigrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema policy and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(false)
			if err != nil {
				return err
			}
			report, err := database.InspectSchema(cmd.Context(), rt.db, rt.cfg)
			if err != nil {
				return fmt.Errorf("schema status failed: %w", err)
			}
			out := cmd.OutOrStdout()
			plan := report.Plan
			fmt.Fprintf(out, "mode=%s env=%s driver=%s sql=%t auto=%t\n", plan.Mode, plan.Env, plan.Driver, plan.SQL, plan.Auto)
			for _, v := range report.Applied {
				fmt.Fprintf(out, "applied: %06d_%s at %s\n", v.Version, v.Name, v.AppliedAt.Format(time.RFC3339))
			}
			for _, m := range report.Pending {
				fmt.Fprintf(out, "pending: %s\n", m.ID())
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down <version>",
		Short: "Roll back one SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			rt, err := open(false)
			if err != nil {
				return err
			}
			migrator, err := database.NewMigrator(rt.db)
			if err != nil {
				return err
			}
			if err := migrator.Down(cmd.Context(), version); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d\n", version)
			return nil
		},
	})

	return cmd
}
