package main

import (
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/keithlinneman/folio/internal/store"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the admin content schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), func(db *sqlx.DB) error {
				return store.Migrate(db.DB, a.logger)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), func(db *sqlx.DB) error {
				return store.MigrateDown(db.DB, steps, a.logger)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), func(db *sqlx.DB) error {
				ver, dirty, err := store.MigrationVersion(db.DB)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "version %d dirty=%v\n", ver, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
