package admin

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
)

func readYieldFile(path string) (*YieldImport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadYieldsCSV(f)
	case ".xlsx":
		return ReadYieldsXLSX(f)
	}
	return nil, fmt.Errorf("unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
}

func (a *app) importYieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-yields <file.csv|file.xlsx>",
		Short: "Replace historical yields with the rows of a dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := readYieldFile(args[0])
			if err != nil {
				return err
			}
			if len(data.Rows) == 0 {
				return fmt.Errorf("%s has no usable rows", args[0])
			}

			var n int
			err = a.withDB(ctx, func(db *sql.DB) error {
				return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
					repo := a.rm.HistoricalYields(tx)
					if err := repo.DeleteAll(ctx); err != nil {
						return err
					}
					written, err := repo.Upsert(ctx, data.Rows)
					n = written
					return err
				})
			})
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			a.log.Info(ctx, "historical yields imported", "rows", n, "skipped", data.Skipped)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows (%d skipped for missing values).\n", n, data.Skipped)
			return nil
		},
	}
}
