package models

import "time"

// Prediction is a quick heuristic estimate (model A).
type Prediction struct {
	ID                  string
	UserID              string
	Temperature         float64
	Rainfall            float64
	Humidity            float64
	SoilPH              float64
	Nitrogen            float64
	Phosphorus          float64
	Potassium           float64
	Area                float64
	PredictedYield      float64
	EstimatedProduction float64
	CreatedAt           time.Time
}

// GeographicPrediction is a model B estimate for a location.
type GeographicPrediction struct {
	ID             string
	UserID         string
	Location       string
	TempC          float64
	DewpointC      float64
	PrecipMM       float64
	SolarRad       float64
	AnnualRain     float64
	RainCV         float64
	SoilType       string
	Irrigation     float64
	PrevYield      float64
	PredictedYield float64
	LowerBound     float64
	UpperBound     float64
	RainfallZone   string
	CreatedAt      time.Time
}

// SeasonPrediction is a seasonal-model estimate for a district.
type SeasonPrediction struct {
	ID             string
	UserID         string
	State          string
	District       string
	Season         string
	Year           int
	PredictedYield float64
	LowerBound     float64
	UpperBound     float64
	ClimateJSON    []byte
	CreatedAt      time.Time
}

// PredictionStats summarises a user's predictions for dashboards.
type PredictionStats struct {
	Total     int
	AvgYield  float64
	MaxYield  float64
	MinYield  float64
	Locations int
}
