// Package historicalyields stores observed district-season yields and the
// climate recorded for them. It backs lag features and climate defaults for
// the seasonal model and the states/districts catalog.
package historicalyields

import (
	"context"

	"github.com/dmitrijs2005/cottonadvisor/internal/server/models"
)

// Filter narrows aggregate queries. State and Season are required; the other
// fields are ignored when zero.
type Filter struct {
	State    string
	District string
	Season   string
	FromYear int
	ToYear   int
}

// StateDistricts lists the districts observed for a state.
type StateDistricts struct {
	Name      string   `json:"name"`
	Districts []string `json:"districts"`
}

type Repository interface {
	DeleteAll(ctx context.Context) error
	// Upsert writes rows keyed by state, district, season and year.
	Upsert(ctx context.Context, rows []models.HistoricalYield) (int, error)
	// YieldFor returns the exact observation or common.ErrorNotFound.
	YieldFor(ctx context.Context, state, district, season string, year int) (float64, error)
	// AverageYield reports ok=false when no rows match.
	AverageYield(ctx context.Context, f Filter) (avg float64, ok bool, err error)
	ClimateAverage(ctx context.Context, f Filter) (*models.SeasonClimate, bool, error)
	StatesDistricts(ctx context.Context) ([]StateDistricts, error)
}
