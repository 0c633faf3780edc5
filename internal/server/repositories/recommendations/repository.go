// Package recommendations stores planting recommendations.
package recommendations

import (
	"context"

	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.PlantingRecommendation) (*models.PlantingRecommendation, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.PlantingRecommendation, error)
}
