package main

import (
	"fmt"

	"pdlens/adapters/postgres"
	"pdlens/internal/errors"

	"github.com/spf13/cobra"
)

func newMigrateCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres run store schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if !state.cfg.Database.Enabled() {
					return errors.ConfigInvalid("DATABASE_URL is required")
				}
				db, err := postgres.Connect(cmd.Context(), state.cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()
				fmt.Fprintln(cmd.OutOrStdout(), "✅ Schema is up to date")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if !state.cfg.Database.Enabled() {
					return errors.ConfigInvalid("DATABASE_URL is required")
				}
				db, err := postgres.Open(cmd.Context(), state.cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()

				status, err := postgres.NewMigrator(db).Status(cmd.Context())
				if err != nil {
					return err
				}
				applied := 0
				for _, s := range status {
					mark := "pending"
					if s.Applied {
						mark = "applied"
						applied++
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  %s_%s: %s\n", s.Version, s.Name, mark)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nSummary: %d/%d migrations applied\n", applied, len(status))
				return nil
			},
		},
	)
	return cmd
}
