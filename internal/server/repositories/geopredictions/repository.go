// Package geopredictions stores location-based (model B) yield estimates.
package geopredictions

import (
	"context"

	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.GeographicPrediction) (*models.GeographicPrediction, error)
	// ListByUser returns newest first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.GeographicPrediction, error)
	Stats(ctx context.Context, userID string) (*models.PredictionStats, error)
}
