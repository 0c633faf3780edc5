// Package seasonpredictions stores seasonal-model estimates per district.
package seasonpredictions

import (
	"context"

	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.SeasonPrediction) (*models.SeasonPrediction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.SeasonPrediction, error)
}
