package recommendations

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

func (r *PostgresRepository) Create(ctx context.Context, rec *models.PlantingRecommendation) (*models.PlantingRecommendation, error) {
	query :=
		`INSERT INTO planting_recommendations (user_id, kind, location, annual_rain, best_period,
		 best_score, early_yield, mid_yield, late_yield, confidence_level)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		rec.UserID, rec.Kind, rec.Location, nullFloat(rec.AnnualRain), rec.BestPeriod, rec.BestScore,
		nullFloat(rec.EarlyYield), nullFloat(rec.MidYield), nullFloat(rec.LateYield),
		dbx.NullString(rec.ConfidenceLevel),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.PlantingRecommendation, error) {
	query :=
		`SELECT id, user_id, kind, location, annual_rain, best_period, best_score,
		 early_yield, mid_yield, late_yield, confidence_level, created_at
		 FROM planting_recommendations
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.PlantingRecommendation
	for rows.Next() {
		var (
			rec                      models.PlantingRecommendation
			annual, early, mid, late sql.NullFloat64
			confidence               sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Location, &annual, &rec.BestPeriod,
			&rec.BestScore, &early, &mid, &late, &confidence, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.AnnualRain = floatPtr(annual)
		rec.EarlyYield = floatPtr(early)
		rec.MidYield = floatPtr(mid)
		rec.LateYield = floatPtr(late)
		rec.ConfidenceLevel = confidence.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
