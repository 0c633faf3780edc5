package seasonpredictions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cottonadvisor/internal/dbx"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.SeasonPrediction) (*models.SeasonPrediction, error) {
	query :=
		`INSERT INTO season_predictions (user_id, state, district, season, year, predicted_yield,
		 lower_bound, upper_bound, climate)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.State, p.District, p.Season, p.Year, p.PredictedYield,
		p.LowerBound, p.UpperBound, string(p.ClimateJSON),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.SeasonPrediction, error) {
	query :=
		`SELECT id, user_id, state, district, season, year, predicted_yield, lower_bound, upper_bound,
		 climate, created_at
		 FROM season_predictions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.SeasonPrediction
	for rows.Next() {
		var (
			p       models.SeasonPrediction
			climate string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.State, &p.District, &p.Season, &p.Year,
			&p.PredictedYield, &p.LowerBound, &p.UpperBound, &climate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.ClimateJSON = []byte(climate)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
