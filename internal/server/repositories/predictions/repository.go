// Package predictions stores quick heuristic yield estimates.
package predictions

import (
	"context"

	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Prediction) (*models.Prediction, error)
	// ListByUser returns newest first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Prediction, error)
	// Stats fills Total and AvgYield.
	Stats(ctx context.Context, userID string) (*models.PredictionStats, error)
}
