package geopredictions

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, p *models.GeographicPrediction) (*models.GeographicPrediction, error) {
	query :=
		`INSERT INTO geographic_predictions (user_id, location, temp_c, dewpoint_c, precip_mm, solar_rad,
		 annual_rain, rain_cv, soil_type, irrigation, prev_yield, predicted_yield, lower_bound,
		 upper_bound, rainfall_zone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.Location, p.TempC, p.DewpointC, p.PrecipMM, p.SolarRad, p.AnnualRain, p.RainCV,
		p.SoilType, p.Irrigation, p.PrevYield, p.PredictedYield, p.LowerBound, p.UpperBound, p.RainfallZone,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.GeographicPrediction, error) {
	query :=
		`SELECT id, user_id, location, temp_c, dewpoint_c, precip_mm, solar_rad, annual_rain, rain_cv,
		 soil_type, irrigation, prev_yield, predicted_yield, lower_bound, upper_bound, rainfall_zone, created_at
		 FROM geographic_predictions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.GeographicPrediction
	for rows.Next() {
		var p models.GeographicPrediction
		if err := rows.Scan(&p.ID, &p.UserID, &p.Location, &p.TempC, &p.DewpointC, &p.PrecipMM,
			&p.SolarRad, &p.AnnualRain, &p.RainCV, &p.SoilType, &p.Irrigation, &p.PrevYield,
			&p.PredictedYield, &p.LowerBound, &p.UpperBound, &p.RainfallZone, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, userID string) (*models.PredictionStats, error) {
	query :=
		`SELECT COUNT(*), AVG(predicted_yield), MAX(predicted_yield), MIN(predicted_yield),
		 COUNT(DISTINCT location)
		 FROM geographic_predictions
		 WHERE user_id = $1`

	var (
		s           models.PredictionStats
		avg, hi, lo sql.NullFloat64
	)
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.Total, &avg, &hi, &lo, &s.Locations); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.AvgYield, s.MaxYield, s.MinYield = avg.Float64, hi.Float64, lo.Float64
	return &s, nil
}
