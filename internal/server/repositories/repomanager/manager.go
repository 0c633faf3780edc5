package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/backupcodes"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/geopredictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/historicalyields"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/predictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/recommendations"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/seasonpredictions"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same repository either directly on the pool or inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	BackupCodes(db dbx.DBTX) backupcodes.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Predictions(db dbx.DBTX) predictions.Repository
	GeoPredictions(db dbx.DBTX) geopredictions.Repository
	SeasonPredictions(db dbx.DBTX) seasonpredictions.Repository
	Recommendations(db dbx.DBTX) recommendations.Repository
	HistoricalYields(db dbx.DBTX) historicalyields.Repository
}
