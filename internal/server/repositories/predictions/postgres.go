package predictions

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

func (r *PostgresRepository) Create(ctx context.Context, p *models.Prediction) (*models.Prediction, error) {
	query :=
		`INSERT INTO predictions (user_id, temperature, rainfall, humidity, soil_ph, nitrogen,
		 phosphorus, potassium, area, predicted_yield, estimated_production)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.Temperature, p.Rainfall, p.Humidity, p.SoilPH, p.Nitrogen,
		p.Phosphorus, p.Potassium, p.Area, p.PredictedYield, p.EstimatedProduction,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Prediction, error) {
	query :=
		`SELECT id, user_id, temperature, rainfall, humidity, soil_ph, nitrogen, phosphorus,
		 potassium, area, predicted_yield, estimated_production, created_at
		 FROM predictions
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

	var out []models.Prediction
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(&p.ID, &p.UserID, &p.Temperature, &p.Rainfall, &p.Humidity, &p.SoilPH,
			&p.Nitrogen, &p.Phosphorus, &p.Potassium, &p.Area, &p.PredictedYield,
			&p.EstimatedProduction, &p.CreatedAt); err != nil {
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
	var (
		total int
		avg   sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(predicted_yield) FROM predictions WHERE user_id = $1`, userID).Scan(&total, &avg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &models.PredictionStats{Total: total, AvgYield: avg.Float64}, nil
}
