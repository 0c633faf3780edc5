package models

import "time"

const (
	RecommendationMonthly = "monthly"
	RecommendationWindow  = "window"
)

// PlantingRecommendation records the best month (monthly scan) or planting
// window (seasonal model) chosen for a user and location. Window rows also
// carry the yield of each window; monthly rows leave them nil.
type PlantingRecommendation struct {
	ID              string
	UserID          string
	Kind            string
	Location        string
	AnnualRain      *float64
	BestPeriod      string
	BestScore       float64
	EarlyYield      *float64
	MidYield        *float64
	LateYield       *float64
	ConfidenceLevel string
	CreatedAt       time.Time
}
