package admin

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/cottonadvisor/internal/catalog"
	"github.com/dmitrijs2005/cottonadvisor/internal/filex"
)

func (a *app) exportCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-catalog [path]",
		Short: "Write the states/districts catalog from historical yields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := a.cfg.CatalogPath
			if len(args) == 1 {
				path = args[0]
			}

			var states []catalog.State
			err := a.withDB(ctx, func(db *sql.DB) error {
				list, err := a.rm.HistoricalYields(db).StatesDistricts(ctx)
				if err != nil {
					return err
				}
				for _, s := range list {
					states = append(states, catalog.State{Name: s.Name, Districts: s.Districts})
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if _, err := filex.EnsureParentDir(path); err != nil {
				return err
			}
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := catalog.New(states).Encode(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d states to %s.\n", len(states), path)
			return nil
		},
	}
}
