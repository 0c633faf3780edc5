package admin

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withDB(ctx, func(db *sql.DB) error {
				if err := runMigrations(ctx, db); err != nil {
					return fmt.Errorf("migrations: %w", err)
				}
				a.log.Info(ctx, "migrations applied")
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
				return nil
			})
		},
	}
}
