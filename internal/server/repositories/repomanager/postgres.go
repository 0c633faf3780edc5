// Package repomanager provides the PostgreSQL RepositoryManager, wiring
// repository constructors together with goose schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/migrations"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/backupcodes"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/geopredictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/historicalyields"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/predictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/recommendations"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/seasonpredictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) BackupCodes(db dbx.DBTX) backupcodes.Repository {
	return backupcodes.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Predictions(db dbx.DBTX) predictions.Repository {
	return predictions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) GeoPredictions(db dbx.DBTX) geopredictions.Repository {
	return geopredictions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) SeasonPredictions(db dbx.DBTX) seasonpredictions.Repository {
	return seasonpredictions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Recommendations(db dbx.DBTX) recommendations.Repository {
	return recommendations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) HistoricalYields(db dbx.DBTX) historicalyields.Repository {
	return historicalyields.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
