// Package admin implements cottonctl, the operator CLI: schema migrations,
// historical yield imports, catalog export, password resets, model uploads
// and API health checks.
package admin

import (
	"context"
	"database/sql"
	"io"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/forest"
	"github.com/dmitrijs2005/cottonadvisor/internal/logging"
	"github.com/dmitrijs2005/cottonadvisor/internal/server"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/config"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/repomanager"
)

type modelStore interface {
	Put(ctx context.Context, name string, body io.Reader) error
}

// test seams
var (
	loadConfig    = config.LoadConfig
	openDB        = dbx.OpenPostgres
	runMigrations = func(ctx context.Context, db *sql.DB) error {
		return repomanager.NewPostgresRepositoryManager().RunMigrations(ctx, db)
	}
	newModelStore = func(ctx context.Context, c *config.Config) (modelStore, error) {
		src, err := server.ModelSource(ctx, c)
		if err != nil {
			return nil, err
		}
		store, ok := src.(*forest.S3Source)
		if !ok {
			return nil, errNoBucket
		}
		return store, nil
	}
)

type app struct {
	cfg    *config.Config
	log    logging.Logger
	rm     repomanager.RepositoryManager
	dsn    string
	bucket string
}

// NewRootCommand builds the cottonctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{rm: repomanager.NewPostgresRepositoryManager()}

	root := &cobra.Command{
		Use:           "cottonctl",
		Short:         "Administer the cotton advisory service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = loadConfig()
			if cmd.Flags().Changed("dsn") {
				a.cfg.DatabaseDSN = a.dsn
			}
			if cmd.Flags().Changed("bucket") {
				a.cfg.ModelBucket = a.bucket
			}
			a.log = logging.NewJSON(cmd.ErrOrStderr(), a.cfg.LogLevel).With("module", "cottonctl")
			return nil
		},
	}

	// -c is read by the config layer itself; it is declared so cobra accepts it.
	root.PersistentFlags().StringP("config", "c", "", "JSON config file")
	root.PersistentFlags().StringVarP(&a.dsn, "dsn", "d", "", "PostgreSQL DSN (overrides config)")
	root.PersistentFlags().StringVar(&a.bucket, "bucket", "", "model bucket (overrides config)")

	root.AddCommand(
		a.migrateCmd(),
		a.importYieldsCmd(),
		a.exportCatalogCmd(),
		a.resetPasswordCmd(),
		a.pushModelCmd(),
		a.pingCmd(),
	)
	return root
}

func (a *app) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := openDB(ctx, a.cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
