package recommendations

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

const insertRe = `(?s)^INSERT\s+INTO\s+planting_recommendations\s*\(user_id,\s*kind,.*early_yield,\s*mid_yield,\s*late_yield,\s*confidence_level\)\s*VALUES\s*\(\$1,.*\$10\)\s*RETURNING\s+id,\s*created_at$`

func TestCreate_Monthly(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	rain := 1300.0
	mock.ExpectQuery(insertRe).
		WithArgs("u-1", "monthly", "Busia", 1300.0, "March", 2.45, nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("r-1", time.Now()))

	rec, err := repo.Create(context.Background(), &models.PlantingRecommendation{
		UserID: "u-1", Kind: models.RecommendationMonthly, Location: "Busia", AnnualRain: &rain,
		BestPeriod: "March", BestScore: 2.45,
	})
	require.NoError(t, err)
	assert.Equal(t, "r-1", rec.ID)
}

func TestCreate_WindowStoresEveryWindowYield(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	early, mid, late := 2.1, 2.4, 1.9
	mock.ExpectQuery(insertRe).
		WithArgs("u-1", "window", "Rajkot, Gujarat", nil, "Late June (16-30)", 2.4, 2.1, 2.4, 1.9, "High").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("r-2", time.Now()))

	_, err := repo.Create(context.Background(), &models.PlantingRecommendation{
		UserID: "u-1", Kind: models.RecommendationWindow, Location: "Rajkot, Gujarat",
		BestPeriod: "Late June (16-30)", BestScore: 2.4, ConfidenceLevel: "High",
		EarlyYield: &early, MidYield: &mid, LateYield: &late,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	cols := []string{"id", "user_id", "kind", "location", "annual_rain", "best_period", "best_score",
		"early_yield", "mid_yield", "late_yield", "confidence_level", "created_at"}
	mock.ExpectQuery(`(?s)FROM\s+planting_recommendations\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$2$`).
		WithArgs("u-1", 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r-1", "u-1", "monthly", "Busia", 1300.0, "March", 2.45, nil, nil, nil, nil, time.Now()).
			AddRow("r-2", "u-1", "window", "Rajkot, Gujarat", nil, "Late June (16-30)", 2.4, 2.1, 2.4, 1.9, "High", time.Now()))

	got, err := repo.ListByUser(context.Background(), "u-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].AnnualRain)
	assert.Equal(t, 1300.0, *got[0].AnnualRain)
	assert.Empty(t, got[0].ConfidenceLevel)
	assert.Nil(t, got[1].AnnualRain)
	assert.Equal(t, "High", got[1].ConfidenceLevel)
	assert.Nil(t, got[0].EarlyYield)
	require.NotNil(t, got[1].EarlyYield)
	require.NotNil(t, got[1].MidYield)
	require.NotNil(t, got[1].LateYield)
	assert.Equal(t, 2.1, *got[1].EarlyYield)
	assert.Equal(t, 2.4, *got[1].MidYield)
	assert.Equal(t, 1.9, *got[1].LateYield)
}
