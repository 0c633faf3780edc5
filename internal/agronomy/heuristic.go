package agronomy

import (
	"math"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
)

// FieldConditions are the quick-prediction form inputs.
type FieldConditions struct {
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
	Humidity    float64 `json:"humidity"`
	SoilPH      float64 `json:"soil_ph"`
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	Area        float64 `json:"area"`
}

// HeuristicEstimate is the output of the rule-based model.
type HeuristicEstimate struct {
	YieldPercent        float64 `json:"yield_percent"`
	EstimatedProduction float64 `json:"estimated_production"`
}

const (
	heuristicBase     = 60.0
	heuristicMinYield = 20.0
	heuristicMaxYield = 95.0
)

// band returns 1 inside [lo, hi] and a linearly decaying factor around
// center outside it, never below floor.
func band(v, lo, hi, center, slope, floor float64) float64 {
	if v >= lo && v <= hi {
		return 1
	}
	return math.Max(floor, 1-math.Abs(v-center)*slope)
}

// Heuristic scores field conditions with fixed multiplicative factors.
func Heuristic(c FieldConditions) HeuristicEstimate {
	temp := band(c.Temperature, 20, 30, 25, 0.02, 0.5)
	rain := band(c.Rainfall, 500, 1000, 750, 0.0005, 0.6)
	humidity := band(c.Humidity, 60, 80, 70, 0.01, 0.7)
	ph := band(c.SoilPH, 6.0, 7.5, 6.75, 0.1, 0.6)
	nutrients := math.Min(1.2, (c.Nitrogen+c.Phosphorus+c.Potassium)/15)

	y := heuristicBase * temp * rain * humidity * ph * nutrients
	y = math.Min(heuristicMaxYield, math.Max(heuristicMinYield, y))
	y = common.Round(y, 1)

	return HeuristicEstimate{
		YieldPercent:        y,
		EstimatedProduction: common.Round(y*10*c.Area, 1),
	}
}
